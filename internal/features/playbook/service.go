package playbook

import (
	"context"
	"fmt"

	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/features/ai"
	"go-deo/internal/features/catalog"
	"go-deo/internal/features/entitlement"
	"go-deo/internal/features/project"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EstimateResult struct {
	ProjectID             string   `json:"projectId"`
	PlaybookID            string   `json:"playbookId"`
	TotalAffectedProducts int      `json:"totalAffectedProducts"`
	EstimatedTokens       int      `json:"estimatedTokens"`
	PlanID                string   `json:"planId"`
	Eligible              bool     `json:"eligible"`
	CanProceed            bool     `json:"canProceed"`
	Reasons               []string `json:"reasons"`
	AiDailyLimit          int      `json:"aiDailyLimit"`
	ScopeID               string   `json:"scopeId"`
}

type PreviewCommand struct {
	ProjectID       string
	UserID          string
	PlaybookID      string
	AssetType       common_models.AssetType
	Rules           map[string]interface{}
	SampleSize      int
	ExplicitRefs    []string
	ScopeProductIDs []string
	IdempotencyKey  string
}

type PreviewResult struct {
	ScopeID      string      `json:"scopeId"`
	RulesHash    string      `json:"rulesHash"`
	Samples      []DraftItem `json:"samples"`
	QuotaWarning string      `json:"quotaWarning,omitempty"`
	Reused       bool        `json:"reused"`
}

type DraftCommand struct {
	ProjectID       string
	UserID          string
	PlaybookID      string
	AssetType       common_models.AssetType
	ScopeID         string
	RulesHash       string
	Rules           map[string]interface{}
	ExplicitRefs    []string
	ScopeProductIDs []string
	IdempotencyKey  string
}

// PlaybookService owns the AI-backed half of the workflow: estimate, preview
// and draft generation. Apply lives in ApplyExecutor, which has no reference
// to the AI generator at all.
type PlaybookService interface {
	Estimate(ctx context.Context, projectID string, userID string, playbookID string, assetType common_models.AssetType) (*EstimateResult, error)
	Preview(ctx context.Context, cmd PreviewCommand) (*PreviewResult, error)
	GenerateDraft(ctx context.Context, cmd DraftCommand) (*PlaybookDraft, error)
	GetDraft(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookDraft, error)
	Usage(ctx context.Context, projectID string) (*UsageSummary, error)
	ListRuns(ctx context.Context, projectID string) ([]PlaybookRun, error)
}

type PlaybookServiceImpl struct {
	Scope        ScopeResolver
	CatalogRepo  catalog.CatalogRepository
	DraftRepo    DraftRepository
	RunRepo      RunRepository
	Entitlements entitlement.Checker
	Generator    ai.Generator
	Projects     project.ProjectService
	Logger       *zap.Logger
}

func NewPlaybookService(
	scope ScopeResolver,
	catalogRepo catalog.CatalogRepository,
	draftRepo DraftRepository,
	runRepo RunRepository,
	entitlements entitlement.Checker,
	generator ai.Generator,
	projects project.ProjectService,
	logger *zap.Logger,
) PlaybookService {
	return &PlaybookServiceImpl{
		Scope:        scope,
		CatalogRepo:  catalogRepo,
		DraftRepo:    draftRepo,
		RunRepo:      runRepo,
		Entitlements: entitlements,
		Generator:    generator,
		Projects:     projects,
		Logger:       logger,
	}
}

func (s *PlaybookServiceImpl) Estimate(ctx context.Context, projectID string, userID string, playbookID string, assetType common_models.AssetType) (*EstimateResult, error) {
	canonical, err := CanonicalPlaybook(playbookID)
	if err != nil {
		return nil, err
	}
	if !assetType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid assetType %q", assetType))
	}

	resolution, err := s.Scope.ResolveScope(ctx, projectID, canonical, assetType, nil)
	if err != nil {
		return nil, err
	}

	eligibility, err := s.Entitlements.CheckEligibility(ctx, userID, projectID, entitlement.ActionPlaybookApply)
	if err != nil {
		return nil, err
	}
	quota, err := s.Entitlements.CheckAiQuota(ctx, userID, projectID, entitlement.ActionPlaybookApply)
	if err != nil {
		return nil, err
	}

	return &EstimateResult{
		ProjectID:             projectID,
		PlaybookID:            canonical,
		TotalAffectedProducts: len(resolution.AffectedItemIDs),
		EstimatedTokens:       len(resolution.AffectedItemIDs) * 120,
		PlanID:                eligibility.PlanID,
		Eligible:              eligibility.Eligible,
		CanProceed:            eligibility.Eligible && quota.Status != entitlement.QuotaBlocked,
		Reasons:               eligibility.Reasons,
		AiDailyLimit:          quota.Limit,
		ScopeID:               resolution.ScopeID,
	}, nil
}

func (s *PlaybookServiceImpl) Preview(ctx context.Context, cmd PreviewCommand) (*PreviewResult, error) {
	canonical, err := CanonicalPlaybook(cmd.PlaybookID)
	if err != nil {
		return nil, err
	}

	refs, err := mergeExplicitRefs(cmd.AssetType, cmd.ExplicitRefs, cmd.ScopeProductIDs)
	if err != nil {
		return nil, err
	}

	quota, err := s.checkAiQuota(ctx, cmd.UserID, cmd.ProjectID, entitlement.ActionPlaybookPreview)
	if err != nil {
		return nil, err
	}

	resolution, err := s.Scope.ResolveScope(ctx, cmd.ProjectID, canonical, cmd.AssetType, refs)
	if err != nil {
		return nil, err
	}

	rulesHash := HashRules(cmd.Rules)

	// An existing READY draft for the exact tuple already holds suggestions;
	// reuse them instead of burning AI runs.
	if existing, findErr := s.DraftRepo.FindByTuple(ctx, cmd.ProjectID, canonical, resolution.ScopeID, rulesHash); findErr == nil && existing.Status == DraftStatusReady {
		if err := s.recordRun(ctx, cmd.ProjectID, cmd.UserID, canonical, resolution.ScopeID, rulesHash, RunTypePreviewGenerate, false, true, nil, cmd.IdempotencyKey, nil); err != nil {
			return nil, err
		}
		return &PreviewResult{
			ScopeID:      resolution.ScopeID,
			RulesHash:    rulesHash,
			Samples:      sampleItems(existing.DraftItems, cmd.SampleSize),
			QuotaWarning: quota.Reason,
			Reused:       true,
		}, nil
	}

	sampleSize := cmd.SampleSize
	if sampleSize <= 0 {
		sampleSize = 3
	}
	if sampleSize > 10 {
		sampleSize = 10
	}

	sampleIDs := resolution.AffectedItemIDs
	if len(sampleIDs) > sampleSize {
		sampleIDs = sampleIDs[:sampleSize]
	}

	samples, aiUsed := s.generateItems(ctx, cmd.ProjectID, canonical, cmd.AssetType, sampleIDs, cmd.Rules)

	if err := s.recordRun(ctx, cmd.ProjectID, cmd.UserID, canonical, resolution.ScopeID, rulesHash, RunTypePreviewGenerate, aiUsed, false, nil, cmd.IdempotencyKey, nil); err != nil {
		return nil, err
	}

	return &PreviewResult{
		ScopeID:      resolution.ScopeID,
		RulesHash:    rulesHash,
		Samples:      samples,
		QuotaWarning: quota.Reason,
	}, nil
}

func (s *PlaybookServiceImpl) GenerateDraft(ctx context.Context, cmd DraftCommand) (*PlaybookDraft, error) {
	canonical, err := CanonicalPlaybook(cmd.PlaybookID)
	if err != nil {
		return nil, err
	}

	refs, err := mergeExplicitRefs(cmd.AssetType, cmd.ExplicitRefs, cmd.ScopeProductIDs)
	if err != nil {
		return nil, err
	}

	rulesHash := HashRules(cmd.Rules)
	if cmd.RulesHash != "" && cmd.RulesHash != rulesHash {
		return nil, apperr.Validation("rulesHash does not match the supplied rules")
	}

	resolution, err := s.Scope.ResolveScope(ctx, cmd.ProjectID, canonical, cmd.AssetType, refs)
	if err != nil {
		return nil, err
	}

	if cmd.ScopeID != "" && cmd.ScopeID != resolution.ScopeID {
		return nil, apperr.New(fiber.StatusConflict, apperr.CodeScopeInvalid, "The catalog changed since the scope was computed; re-run preview").
			WithMeta("expectedScopeId", resolution.ScopeID).
			WithMeta("providedScopeId", cmd.ScopeID)
	}

	// Reuse path: one draft per tuple, and a reused draft never re-invokes AI.
	if existing, findErr := s.DraftRepo.FindByTuple(ctx, cmd.ProjectID, canonical, resolution.ScopeID, rulesHash); findErr == nil && existing.Status == DraftStatusReady {
		var reusedFrom *PlaybookRun
		if prior, priorErr := s.RunRepo.FindLatestGeneration(ctx, cmd.ProjectID, canonical, resolution.ScopeID, rulesHash); priorErr == nil {
			reusedFrom = prior
		}
		if err := s.recordRun(ctx, cmd.ProjectID, cmd.UserID, canonical, resolution.ScopeID, rulesHash, RunTypeDraftGenerate, false, true, reusedFrom, cmd.IdempotencyKey, nil); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if _, err := s.checkAiQuota(ctx, cmd.UserID, cmd.ProjectID, entitlement.ActionPlaybookDraft); err != nil {
		return nil, err
	}

	items, aiUsed := s.generateItems(ctx, cmd.ProjectID, canonical, cmd.AssetType, resolution.AffectedItemIDs, cmd.Rules)

	usable := 0
	for _, item := range items {
		if item.FinalSuggestion != "" {
			usable++
		}
	}

	projectObjID, err := hexObjectID(cmd.ProjectID)
	if err != nil {
		return nil, err
	}

	sampleIDs := resolution.AffectedItemIDs
	if len(sampleIDs) > 5 {
		sampleIDs = sampleIDs[:5]
	}

	draft := &PlaybookDraft{
		ProjectID:        projectObjID,
		PlaybookID:       canonical,
		ScopeID:          resolution.ScopeID,
		RulesHash:        rulesHash,
		Status:           DraftStatusReady,
		ScopeItemIDs:     resolution.AffectedItemIDs,
		SampleProductIDs: sampleIDs,
		DraftItems:       items,
		Counts: DraftCounts{
			AffectedTotal:     len(resolution.AffectedItemIDs),
			DraftGenerated:    len(items),
			NoSuggestionCount: len(resolution.AffectedItemIDs) - usable,
		},
		Rules:           cmd.Rules,
		CreatedByUserID: cmd.UserID,
	}

	if err := s.DraftRepo.Insert(ctx, draft); err != nil {
		// Concurrent generation of the same tuple: the unique index makes
		// one writer win; return the winner.
		if existing, findErr := s.DraftRepo.FindByTuple(ctx, cmd.ProjectID, canonical, resolution.ScopeID, rulesHash); findErr == nil {
			return existing, nil
		}
		return nil, err
	}

	if err := s.recordRun(ctx, cmd.ProjectID, cmd.UserID, canonical, resolution.ScopeID, rulesHash, RunTypeDraftGenerate, aiUsed, false, nil, cmd.IdempotencyKey, map[string]interface{}{
		"affectedTotal":  draft.Counts.AffectedTotal,
		"draftGenerated": draft.Counts.DraftGenerated,
	}); err != nil {
		return nil, err
	}

	return draft, nil
}

func (s *PlaybookServiceImpl) GetDraft(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookDraft, error) {
	canonical, err := CanonicalPlaybook(playbookID)
	if err != nil {
		return nil, err
	}
	if rulesHash == "" {
		rulesHash = RulesHashNone
	}

	draft, err := s.DraftRepo.FindByTuple(ctx, projectID, canonical, scopeID, rulesHash)
	if err != nil {
		return nil, apperr.NotFound("No draft found for this scope and rules")
	}
	return draft, nil
}

func (s *PlaybookServiceImpl) Usage(ctx context.Context, projectID string) (*UsageSummary, error) {
	return s.RunRepo.Summary(ctx, projectID)
}

func (s *PlaybookServiceImpl) ListRuns(ctx context.Context, projectID string) ([]PlaybookRun, error) {
	return s.RunRepo.ListByProject(ctx, projectID, 100)
}

// generateItems calls the AI collaborator once per item. Generation is
// best-effort: a failed item simply has no draft entry and becomes a skip at
// apply time.
func (s *PlaybookServiceImpl) generateItems(ctx context.Context, projectID string, playbookID string, assetType common_models.AssetType, itemIDs []string, rules map[string]interface{}) ([]DraftItem, bool) {
	field := TargetField(playbookID)

	storeName := ""
	if proj, err := s.Projects.GetProject(ctx, projectID); err == nil {
		if includeStore, ok := rules[ruleIncludeStoreName].(bool); !ok || includeStore {
			storeName = proj.Name
		}
	}

	items := make([]DraftItem, 0, len(itemIDs))
	aiUsed := false

	for _, itemID := range itemIDs {
		catalogItem, err := s.CatalogRepo.GetByExternalID(ctx, projectID, assetType, itemID)
		if err != nil {
			s.Logger.Warn("draft generation skipping unknown item",
				zap.String("itemId", itemID),
				zap.Error(err),
			)
			continue
		}

		aiUsed = true
		raw, err := s.Generator.GenerateMetadata(ctx, ai.GenerateRequest{
			ProjectID:  projectID,
			PlaybookID: playbookID,
			Field:      field,
			ItemTitle:  catalogItem.Title,
			ItemHandle: catalogItem.Handle,
			StoreName:  storeName,
		})
		if err != nil {
			s.Logger.Warn("metadata generation failed for item",
				zap.String("itemId", itemID),
				zap.Error(err),
			)
			continue
		}

		final, warnings := applyRules(ctx, raw, catalogItem, rules)

		items = append(items, DraftItem{
			ItemID:          itemID,
			Field:           field,
			RawSuggestion:   raw,
			FinalSuggestion: final,
			RuleWarnings:    warnings,
		})
	}

	return items, aiUsed
}

func (s *PlaybookServiceImpl) checkAiQuota(ctx context.Context, userID string, projectID string, action entitlement.Action) (*entitlement.QuotaResult, error) {
	quota, err := s.Entitlements.CheckAiQuota(ctx, userID, projectID, action)
	if err != nil {
		return nil, err
	}
	if quota.Status == entitlement.QuotaBlocked {
		return nil, apperr.New(fiber.StatusTooManyRequests, apperr.CodeAiQuotaExceeded, quota.Reason).
			WithMeta("limit", quota.Limit).
			WithMeta("used", quota.Used)
	}
	return quota, nil
}

func (s *PlaybookServiceImpl) recordRun(ctx context.Context, projectID string, userID string, playbookID string, scopeID string, rulesHash string, runType RunType, aiUsed bool, reused bool, reusedFrom *PlaybookRun, idempotencyKey string, meta map[string]interface{}) error {
	projectObjID, err := hexObjectID(projectID)
	if err != nil {
		return err
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	run := &PlaybookRun{
		ProjectID:       projectObjID,
		CreatedByUserID: userID,
		PlaybookID:      playbookID,
		ScopeID:         scopeID,
		RulesHash:       rulesHash,
		RunType:         runType,
		Status:          RunStatusSucceeded,
		AiUsed:          aiUsed,
		Reused:          reused,
		IdempotencyKey:  idempotencyKey,
		Meta:            meta,
	}
	if reusedFrom != nil {
		id := reusedFrom.ID
		run.ReusedFromRunID = &id
	}

	_, _, err = s.RunRepo.Insert(ctx, run)
	return err
}

func sampleItems(items []DraftItem, sampleSize int) []DraftItem {
	if sampleSize <= 0 {
		sampleSize = 3
	}
	if len(items) > sampleSize {
		return items[:sampleSize]
	}
	return items
}

// mergeExplicitRefs folds scopeProductIds into prefixed refs. Product id
// scoping is only meaningful for PRODUCTS playbook runs.
func mergeExplicitRefs(assetType common_models.AssetType, refs []string, scopeProductIDs []string) ([]string, error) {
	if len(scopeProductIDs) == 0 {
		return refs, nil
	}
	if assetType != common_models.AssetTypeProducts {
		return nil, apperr.Validation(fmt.Sprintf("scopeProductIds is not valid for asset type %s", assetType))
	}

	merged := make([]string, 0, len(refs)+len(scopeProductIDs))
	merged = append(merged, refs...)
	for _, id := range scopeProductIDs {
		merged = append(merged, common_models.AssetTypeProducts.RefPrefix()+id)
	}
	return merged, nil
}
