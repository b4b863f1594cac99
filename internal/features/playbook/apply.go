package playbook

import (
	"context"
	"fmt"
	"time"

	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/features/catalog"
	"go-deo/internal/features/entitlement"
	"go-deo/internal/features/governance"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rateLimitRetries       = 3
	rateLimitBaseBackoff   = 200 * time.Millisecond
	failureReasonRateLimit = "RATE_LIMIT"
	failureReasonLimit     = "LIMIT_REACHED"
	failureReasonError     = "ERROR"
)

type ApplyCommand struct {
	ProjectID      string
	UserID         string
	Role           common_models.ProjectRole
	PlaybookID     string
	AssetType      common_models.AssetType
	ScopeID        string
	RulesHash      string
	IdempotencyKey string
}

// RunEvent is pushed to subscribed clients whenever a run finishes.
type RunEvent struct {
	ProjectID    string    `json:"projectId"`
	PlaybookID   string    `json:"playbookId"`
	ScopeID      string    `json:"scopeId"`
	RunType      RunType   `json:"runType"`
	Status       RunStatus `json:"status"`
	UpdatedCount int       `json:"updatedCount"`
	Stopped      bool      `json:"stopped"`
}

type RunEventPublisher interface {
	PublishRunEvent(event RunEvent)
}

// ApplyExecutor performs the live-catalog half of the workflow. It flushes a
// previously generated draft to the storefront write path and never touches
// the AI generator: the type has no reference to it, so an apply run cannot
// consume AI by construction.
type ApplyExecutor interface {
	Apply(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error)
}

type ApplyExecutorImpl struct {
	Scope        ScopeResolver
	DraftRepo    DraftRepository
	RunRepo      RunRepository
	Mutator      catalog.StorefrontMutator
	Entitlements entitlement.Checker
	Governance   governance.GovernanceService
	Events       RunEventPublisher
	Logger       *zap.Logger

	// Sleep is swappable so retry tests do not wait out real backoff.
	Sleep func(d time.Duration)
}

func NewApplyExecutor(
	scope ScopeResolver,
	draftRepo DraftRepository,
	runRepo RunRepository,
	mutator catalog.StorefrontMutator,
	entitlements entitlement.Checker,
	gov governance.GovernanceService,
	events RunEventPublisher,
	logger *zap.Logger,
) ApplyExecutor {
	return &ApplyExecutorImpl{
		Scope:        scope,
		DraftRepo:    draftRepo,
		RunRepo:      runRepo,
		Mutator:      mutator,
		Entitlements: entitlements,
		Governance:   gov,
		Events:       events,
		Logger:       logger,
		Sleep:        time.Sleep,
	}
}

func (e *ApplyExecutorImpl) Apply(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error) {
	canonical, err := CanonicalPlaybook(cmd.PlaybookID)
	if err != nil {
		return nil, err
	}
	if !cmd.AssetType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid assetType %q", cmd.AssetType))
	}
	if cmd.ScopeID == "" {
		return nil, apperr.Validation("scopeId is required; run preview first")
	}

	rulesHash := cmd.RulesHash
	if rulesHash == "" {
		rulesHash = RulesHashNone
	}

	// A retried idempotency key replays the recorded outcome without touching
	// the catalog. The walk below converges on its own for partial retries
	// under a fresh key.
	if cmd.IdempotencyKey != "" {
		if prior, findErr := e.RunRepo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey); findErr == nil && prior.RunType == RunTypeApply {
			return resultFromRunMeta(prior), nil
		}
	}

	eligibility, err := e.Entitlements.CheckEligibility(ctx, cmd.UserID, cmd.ProjectID, entitlement.ActionPlaybookApply)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, apperr.New(fiber.StatusForbidden, apperr.CodePlanNotEligible, "Your plan does not include bulk apply").
			WithMeta("planId", eligibility.PlanID).
			WithMeta("reasons", eligibility.Reasons)
	}

	resourceID := canonical + ":" + cmd.ScopeID
	if err := e.Governance.Authorize(ctx, cmd.ProjectID, cmd.UserID, cmd.Role, governance.ResourceAutomationPlaybookApply, resourceID); err != nil {
		return nil, err
	}

	resolution, err := e.Scope.ResolveScope(ctx, cmd.ProjectID, canonical, cmd.AssetType, nil)
	if err != nil {
		return nil, err
	}
	if resolution.ScopeID != cmd.ScopeID {
		// Successful apply writes shrink the affected set, so the recomputed
		// id drifts on a resume after a partial stop and on a replay against
		// fully-settled data. That is convergence, not catalog drift: every
		// still-affected item must belong to the draft's original membership.
		// Anything outside it means the catalog really changed.
		prior, findErr := e.DraftRepo.FindLatestByScope(ctx, cmd.ProjectID, canonical, cmd.ScopeID)
		if findErr != nil || !withinScope(resolution.AffectedItemIDs, prior.ScopeItemIDs) {
			return nil, apperr.New(fiber.StatusConflict, apperr.CodeScopeInvalid, "The catalog changed since this draft was generated; re-run preview").
				WithMeta("expectedScopeId", resolution.ScopeID).
				WithMeta("providedScopeId", cmd.ScopeID)
		}
	}

	// Drift is only detectable when the caller pinned a hash; an omitted hash
	// falls through to the draft lookup below.
	if cmd.RulesHash != "" {
		if latest, findErr := e.DraftRepo.FindLatestByScope(ctx, cmd.ProjectID, canonical, cmd.ScopeID); findErr == nil && latest.RulesHash != rulesHash {
			return nil, apperr.New(fiber.StatusConflict, apperr.CodeRulesChanged, "Rules changed since this draft was generated; regenerate the draft").
				WithMeta("expectedRulesHash", latest.RulesHash).
				WithMeta("providedRulesHash", rulesHash)
		}
	}

	draft, err := e.DraftRepo.FindByTuple(ctx, cmd.ProjectID, canonical, cmd.ScopeID, rulesHash)
	if err != nil || draft.Status != DraftStatusReady {
		return nil, apperr.New(fiber.StatusConflict, apperr.CodeDraftNotFound, "No ready draft for this scope and rules; generate one first")
	}

	result := e.walk(ctx, cmd.ProjectID, cmd.AssetType, resolution.AffectedItemIDs, draft)

	// The audit trail is part of the operation contract: if the APPLY_EXECUTED
	// event cannot be written the whole call fails, even though catalog writes
	// already landed. Retrying with the same key replays nothing extra.
	if err := e.Governance.RecordApplyExecuted(ctx, cmd.ProjectID, cmd.UserID, resourceID, map[string]interface{}{
		"playbookId":     canonical,
		"scopeId":        cmd.ScopeID,
		"updatedCount":   result.UpdatedCount,
		"attemptedCount": result.AttemptedCount,
		"stopped":        result.Stopped,
	}); err != nil {
		return nil, err
	}

	idempotencyKey := cmd.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	status := RunStatusSucceeded
	if result.Stopped && result.FailureReason != failureReasonLimit {
		status = RunStatusFailed
	}

	run := &PlaybookRun{
		ProjectID:       draft.ProjectID,
		CreatedByUserID: cmd.UserID,
		PlaybookID:      canonical,
		ScopeID:         cmd.ScopeID,
		RulesHash:       rulesHash,
		RunType:         RunTypeApply,
		Status:          status,
		AiUsed:          false,
		IdempotencyKey:  idempotencyKey,
		Meta:            runMetaFromResult(result),
	}
	if _, _, err := e.RunRepo.Insert(ctx, run); err != nil {
		return nil, err
	}

	if e.Events != nil {
		e.Events.PublishRunEvent(RunEvent{
			ProjectID:    cmd.ProjectID,
			PlaybookID:   canonical,
			ScopeID:      cmd.ScopeID,
			RunType:      RunTypeApply,
			Status:       status,
			UpdatedCount: result.UpdatedCount,
			Stopped:      result.Stopped,
		})
	}

	return result, nil
}

// walk flushes draft suggestions item by item in evaluator order, stopping on
// the first hard failure so a partially applied scope stays a clean prefix.
func (e *ApplyExecutorImpl) walk(ctx context.Context, projectID string, assetType common_models.AssetType, affectedIDs []string, draft *PlaybookDraft) *ApplyResult {
	result := &ApplyResult{
		TotalAffectedProducts: len(affectedIDs),
		Results:               make([]ApplyItemResult, 0, len(affectedIDs)),
	}

	for _, itemID := range affectedIDs {
		entry, ok := draft.ItemFor(itemID)
		if !ok || entry.FinalSuggestion == "" {
			result.SkippedCount++
			result.Results = append(result.Results, ApplyItemResult{ItemID: itemID, Status: ApplyItemSkipped})
			continue
		}

		result.AttemptedCount++
		err := e.mutateWithRetry(ctx, projectID, assetType, itemID, entry.Field, entry.FinalSuggestion)
		if err == nil {
			result.UpdatedCount++
			result.Results = append(result.Results, ApplyItemResult{ItemID: itemID, Status: ApplyItemUpdated})
			continue
		}

		result.Stopped = true
		result.StoppedAtProductID = itemID

		switch catalog.ClassifyMutationError(err) {
		case catalog.FailureLimitReached:
			result.LimitReached = true
			result.FailureReason = failureReasonLimit
			result.Results = append(result.Results, ApplyItemResult{ItemID: itemID, Status: ApplyItemLimitReached})
		case catalog.FailureRateLimit:
			result.FailureReason = failureReasonRateLimit
			result.Results = append(result.Results, ApplyItemResult{ItemID: itemID, Status: ApplyItemFailed})
		default:
			result.FailureReason = failureReasonError
			result.Results = append(result.Results, ApplyItemResult{ItemID: itemID, Status: ApplyItemFailed})
		}

		e.Logger.Warn("apply run stopped",
			zap.String("projectId", projectID),
			zap.String("itemId", itemID),
			zap.String("reason", result.FailureReason),
		)
		return result
	}

	return result
}

// mutateWithRetry retries only rate-limit failures, with doubling backoff.
// Anything else fails immediately.
func (e *ApplyExecutorImpl) mutateWithRetry(ctx context.Context, projectID string, assetType common_models.AssetType, itemID string, field string, value string) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = e.Mutator.UpdateSeo(ctx, projectID, assetType, itemID, field, value)
		if lastErr == nil {
			return nil
		}
		if catalog.ClassifyMutationError(lastErr) != catalog.FailureRateLimit || attempt >= rateLimitRetries {
			return lastErr
		}
		e.Sleep(rateLimitBaseBackoff << attempt)
	}
}

// withinScope reports whether every id sits inside the draft's original
// membership.
func withinScope(ids []string, members []string) bool {
	set := make(map[string]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func runMetaFromResult(result *ApplyResult) map[string]interface{} {
	return map[string]interface{}{
		"totalAffectedProducts": result.TotalAffectedProducts,
		"attemptedCount":        result.AttemptedCount,
		"updatedCount":          result.UpdatedCount,
		"skippedCount":          result.SkippedCount,
		"stopped":               result.Stopped,
		"failureReason":         result.FailureReason,
		"stoppedAtProductId":    result.StoppedAtProductID,
		"limitReached":          result.LimitReached,
	}
}

// resultFromRunMeta rebuilds the recorded outcome from a ledger row, so a
// replayed idempotency key answers without re-touching the catalog. Per-item
// rows are not persisted; the replay carries the counts.
func resultFromRunMeta(run *PlaybookRun) *ApplyResult {
	meta := run.Meta
	return &ApplyResult{
		TotalAffectedProducts: metaInt(meta["totalAffectedProducts"]),
		AttemptedCount:        metaInt(meta["attemptedCount"]),
		UpdatedCount:          metaInt(meta["updatedCount"]),
		SkippedCount:          metaInt(meta["skippedCount"]),
		Stopped:               metaBool(meta["stopped"]),
		FailureReason:         metaString(meta["failureReason"]),
		StoppedAtProductID:    metaString(meta["stoppedAtProductId"]),
		LimitReached:          metaBool(meta["limitReached"]),
	}
}

// BSON round-trips numbers as int32/int64, so replay reads are tolerant.
func metaInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func metaBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func metaString(v interface{}) string {
	s, _ := v.(string)
	return s
}
