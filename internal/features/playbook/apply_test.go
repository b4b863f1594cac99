package playbook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/features/catalog"
	"go-deo/internal/features/entitlement"
	"go-deo/internal/features/governance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memDraftRepo struct {
	drafts []*PlaybookDraft
}

func (m *memDraftRepo) Insert(ctx context.Context, draft *PlaybookDraft) error {
	for _, d := range m.drafts {
		if d.ProjectID == draft.ProjectID && d.PlaybookID == draft.PlaybookID && d.ScopeID == draft.ScopeID && d.RulesHash == draft.RulesHash {
			return fmt.Errorf("duplicate draft tuple")
		}
	}
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	draft.CreatedAt = time.Now()
	m.drafts = append(m.drafts, draft)
	return nil
}

func (m *memDraftRepo) FindByTuple(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookDraft, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}
	for _, d := range m.drafts {
		if d.ProjectID == objID && d.PlaybookID == playbookID && d.ScopeID == scopeID && d.RulesHash == rulesHash {
			return d, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memDraftRepo) FindLatestByScope(ctx context.Context, projectID string, playbookID string, scopeID string) (*PlaybookDraft, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}
	for i := len(m.drafts) - 1; i >= 0; i-- {
		d := m.drafts[i]
		if d.ProjectID == objID && d.PlaybookID == playbookID && d.ScopeID == scopeID {
			return d, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memDraftRepo) EnsureIndexes(ctx context.Context) error { return nil }

type memRunRepo struct {
	runs []*PlaybookRun
}

func (m *memRunRepo) Insert(ctx context.Context, run *PlaybookRun) (*PlaybookRun, bool, error) {
	for _, r := range m.runs {
		if r.IdempotencyKey == run.IdempotencyKey {
			return r, true, nil
		}
	}
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.CreatedAt = time.Now()
	m.runs = append(m.runs, run)
	return run, false, nil
}

func (m *memRunRepo) FindByIdempotencyKey(ctx context.Context, key string) (*PlaybookRun, error) {
	for _, r := range m.runs {
		if r.IdempotencyKey == key {
			return r, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memRunRepo) FindLatestGeneration(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookRun, error) {
	for i := len(m.runs) - 1; i >= 0; i-- {
		r := m.runs[i]
		if r.PlaybookID == playbookID && r.ScopeID == scopeID && r.RulesHash == rulesHash && r.RunType == RunTypeDraftGenerate && !r.Reused {
			return r, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memRunRepo) CountAiRunsSince(ctx context.Context, projectID string, since time.Time) (int64, error) {
	var n int64
	for _, r := range m.runs {
		if r.AiUsed && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memRunRepo) Summary(ctx context.Context, projectID string) (*UsageSummary, error) {
	summary := &UsageSummary{}
	for _, r := range m.runs {
		summary.TotalRuns++
		if r.AiUsed {
			summary.TotalAiRuns++
		}
		if r.RunType == RunTypeApply && r.AiUsed {
			summary.ApplyAiRuns++
		}
		if r.Reused {
			summary.RunsAvoided++
		}
	}
	return summary, nil
}

func (m *memRunRepo) ListByProject(ctx context.Context, projectID string, limit int64) ([]PlaybookRun, error) {
	out := make([]PlaybookRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memRunRepo) EnsureIndexes(ctx context.Context) error { return nil }

// scriptedMutator fails specific items with a configured kind. Rate-limit
// failures consume a budget, so retries can eventually succeed.
type scriptedMutator struct {
	repo            *fakeCatalogRepo
	failures        map[string]catalog.FailureKind
	rateLimitBudget map[string]int
	attempts        map[string]int
}

func newScriptedMutator(repo *fakeCatalogRepo) *scriptedMutator {
	return &scriptedMutator{
		repo:            repo,
		failures:        map[string]catalog.FailureKind{},
		rateLimitBudget: map[string]int{},
		attempts:        map[string]int{},
	}
}

func (m *scriptedMutator) UpdateSeo(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error {
	m.attempts[externalID]++

	if budget, ok := m.rateLimitBudget[externalID]; ok && budget > 0 {
		m.rateLimitBudget[externalID] = budget - 1
		return &catalog.MutationError{Kind: catalog.FailureRateLimit, Message: "throttled"}
	}
	if kind, ok := m.failures[externalID]; ok {
		return &catalog.MutationError{Kind: kind, Message: "scripted failure"}
	}
	return m.repo.SetSeoField(ctx, projectID, assetType, externalID, field, value)
}

type fakeChecker struct {
	eligible bool
	planID   string
	quota    entitlement.QuotaStatus
}

func (f *fakeChecker) CheckEligibility(ctx context.Context, userID string, projectID string, action entitlement.Action) (*entitlement.Eligibility, error) {
	res := &entitlement.Eligibility{Eligible: f.eligible, PlanID: f.planID}
	if !f.eligible {
		res.Reasons = []string{entitlement.ReasonPlanNotEligible}
	}
	return res, nil
}

func (f *fakeChecker) CheckAiQuota(ctx context.Context, userID string, projectID string, action entitlement.Action) (*entitlement.QuotaResult, error) {
	return &entitlement.QuotaResult{Status: f.quota, Limit: 500}, nil
}

// stubGovernance embeds the interface; only the methods the executor touches
// are overridden, anything else panics loudly.
type stubGovernance struct {
	governance.GovernanceService
	authorizeErr error
	recordErr    error
	recorded     []string
}

func (s *stubGovernance) Authorize(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, resourceType governance.ResourceType, resourceID string) error {
	return s.authorizeErr
}

func (s *stubGovernance) RecordApplyExecuted(ctx context.Context, projectID string, actorUserID string, resourceID string, metadata map[string]interface{}) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, resourceID)
	return nil
}

type capturedEvents struct {
	events []RunEvent
}

func (c *capturedEvents) PublishRunEvent(event RunEvent) {
	c.events = append(c.events, event)
}

type applyFixture struct {
	repo     *fakeCatalogRepo
	mutator  *scriptedMutator
	drafts   *memDraftRepo
	runs     *memRunRepo
	checker  *fakeChecker
	gov      *stubGovernance
	events   *capturedEvents
	executor *ApplyExecutorImpl
}

const testProjectID = "64b000000000000000000001"

func newApplyFixture(t *testing.T, items []common_models.CatalogItem) *applyFixture {
	t.Helper()

	repo := &fakeCatalogRepo{items: items}
	mutator := newScriptedMutator(repo)
	drafts := &memDraftRepo{}
	runs := &memRunRepo{}
	checker := &fakeChecker{eligible: true, planID: "pro", quota: entitlement.QuotaOK}
	gov := &stubGovernance{}
	events := &capturedEvents{}

	executor := NewApplyExecutor(
		NewScopeResolver(repo),
		drafts,
		runs,
		mutator,
		checker,
		gov,
		events,
		zap.NewNop(),
	).(*ApplyExecutorImpl)
	executor.Sleep = func(time.Duration) {}

	return &applyFixture{
		repo:     repo,
		mutator:  mutator,
		drafts:   drafts,
		runs:     runs,
		checker:  checker,
		gov:      gov,
		events:   events,
		executor: executor,
	}
}

// seedDraft resolves the current scope and stores a READY draft whose entries
// cover the given suggestions (missing entries become skips at apply time).
func (f *applyFixture) seedDraft(t *testing.T, suggestions map[string]string) *ScopeResolution {
	t.Helper()

	resolution, err := f.executor.Scope.ResolveScope(context.Background(), testProjectID, PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)

	projectObjID, err := primitive.ObjectIDFromHex(testProjectID)
	require.NoError(t, err)

	items := make([]DraftItem, 0, len(suggestions))
	for itemID, suggestion := range suggestions {
		items = append(items, DraftItem{
			ItemID:          itemID,
			Field:           catalog.FieldSeoTitle,
			RawSuggestion:   suggestion,
			FinalSuggestion: suggestion,
		})
	}

	require.NoError(t, f.drafts.Insert(context.Background(), &PlaybookDraft{
		ProjectID:    projectObjID,
		PlaybookID:   PlaybookMissingSeoTitle,
		ScopeID:      resolution.ScopeID,
		RulesHash:    RulesHashNone,
		Status:       DraftStatusReady,
		ScopeItemIDs: resolution.AffectedItemIDs,
		DraftItems:   items,
	}))

	return resolution
}

func (f *applyFixture) applyCommand(scopeID string) ApplyCommand {
	return ApplyCommand{
		ProjectID:  testProjectID,
		UserID:     "user-1",
		Role:       common_models.RoleOwner,
		PlaybookID: PlaybookMissingSeoTitle,
		AssetType:  common_models.AssetTypeProducts,
		ScopeID:    scopeID,
	}
}

func TestApplyUpdatesAllAffected(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
		productItem("3", strPtr("done")),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "Title one", "2": "Title two"})

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalAffectedProducts)
	assert.Equal(t, 2, result.AttemptedCount)
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.False(t, result.Stopped)

	item, err := f.repo.GetByExternalID(context.Background(), testProjectID, common_models.AssetTypeProducts, "1")
	require.NoError(t, err)
	require.NotNil(t, item.SeoTitle)
	assert.Equal(t, "Title one", *item.SeoTitle)
}

func TestApplyNeverUsesAi(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
	resolution := f.seedDraft(t, map[string]string{"1": "Title"})

	_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	assert.Equal(t, RunTypeApply, run.RunType)
	assert.False(t, run.AiUsed)

	count, err := f.runs.CountAiRunsSince(context.Background(), testProjectID, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplyStopsOnFirstHardFailure(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
		productItem("3", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B", "3": "C"})
	f.mutator.failures["2"] = catalog.FailureGeneric

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 2, result.AttemptedCount)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.True(t, result.Stopped)
	assert.Equal(t, "ERROR", result.FailureReason)
	assert.Equal(t, "2", result.StoppedAtProductID)

	// Item 3 was never touched.
	assert.Zero(t, f.mutator.attempts["3"])
}

func TestApplySkipsItemsWithoutSuggestion(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"2": "Only two"})

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.False(t, result.Stopped)
	assert.Equal(t, ApplyItemSkipped, result.Results[0].Status)
	assert.Equal(t, ApplyItemUpdated, result.Results[1].Status)
}

func TestApplyRetriesRateLimitThenSucceeds(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
	resolution := f.seedDraft(t, map[string]string{"1": "Title"})
	f.mutator.rateLimitBudget["1"] = 2

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 1, result.UpdatedCount)
	assert.False(t, result.Stopped)
	assert.Equal(t, 3, f.mutator.attempts["1"])
}

func TestApplyStopsWhenRateLimitPersists(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B"})
	f.mutator.rateLimitBudget["1"] = 100

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.True(t, result.Stopped)
	assert.Equal(t, "RATE_LIMIT", result.FailureReason)
	assert.Equal(t, 1+rateLimitRetries, f.mutator.attempts["1"])
	assert.Zero(t, f.mutator.attempts["2"])
}

func TestApplyStopsOnPlanLimit(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B"})
	f.mutator.failures["2"] = catalog.FailureLimitReached

	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.True(t, result.Stopped)
	assert.True(t, result.LimitReached)
	assert.Equal(t, "LIMIT_REACHED", result.FailureReason)

	// A plan-limit stop is still a successful run, not a failure.
	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, RunStatusSucceeded, f.runs.runs[0].Status)
}

func TestApplyResumesAfterPartialStop(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
		productItem("3", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B", "3": "C"})
	f.mutator.rateLimitBudget["2"] = 100

	first, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)
	require.True(t, first.Stopped)
	require.Equal(t, 1, first.UpdatedCount)

	// The throttle clears; a retry with the original scope id picks up at the
	// still-affected items even though item 1 already settled.
	delete(f.mutator.rateLimitBudget, "2")

	second, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 2, second.TotalAffectedProducts)
	assert.Equal(t, 2, second.AttemptedCount)
	assert.Equal(t, 2, second.UpdatedCount)
	assert.False(t, second.Stopped)

	item, err := f.repo.GetByExternalID(context.Background(), testProjectID, common_models.AssetTypeProducts, "3")
	require.NoError(t, err)
	require.NotNil(t, item.SeoTitle)
	assert.Equal(t, "C", *item.SeoTitle)
}

func TestApplyOnSettledDataIsNoop(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B"})

	first, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)
	require.Equal(t, 2, first.UpdatedCount)

	// Everything already settled: the same scope id converges to an empty
	// walk instead of a conflict.
	second, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	assert.Equal(t, 0, second.AttemptedCount)
	assert.Equal(t, 0, second.UpdatedCount)
	assert.False(t, second.Stopped)
}

func TestApplyRejectsExternalCatalogDrift(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A"})

	// A merchant adds a new affected product after the draft was generated.
	f.repo.items = append(f.repo.items, productItem("9", nil))

	_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.Error(t, err)
	appErr, ok := err.(*apperr.Error)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeScopeInvalid, appErr.Code)
	assert.Zero(t, f.mutator.attempts["1"])
}

func TestApplyReplaysDuplicateIdempotencyKey(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	})
	resolution := f.seedDraft(t, map[string]string{"1": "A", "2": "B"})

	cmd := f.applyCommand(resolution.ScopeID)
	cmd.IdempotencyKey = "retry-key-1"

	first, err := f.executor.Apply(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, 2, first.UpdatedCount)

	// Same key: recorded outcome comes back, nothing is re-attempted even
	// though the scope has since drifted.
	attemptsBefore := f.mutator.attempts["1"]
	replay, err := f.executor.Apply(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedCount, replay.UpdatedCount)
	assert.Equal(t, first.AttemptedCount, replay.AttemptedCount)
	assert.Equal(t, attemptsBefore, f.mutator.attempts["1"])
	assert.Len(t, f.runs.runs, 1)
}

func TestApplyPreconditionOrderAndCodes(t *testing.T) {
	t.Run("plan not eligible", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
		resolution := f.seedDraft(t, map[string]string{"1": "A"})
		f.checker.eligible = false
		f.checker.planID = "free"

		_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
		require.Error(t, err)
		appErr := err.(*apperr.Error)
		assert.Equal(t, apperr.CodePlanNotEligible, appErr.Code)
		assert.Equal(t, 403, appErr.Status)
		assert.Zero(t, f.mutator.attempts["1"])
	})

	t.Run("approval required", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
		resolution := f.seedDraft(t, map[string]string{"1": "A"})
		f.gov.authorizeErr = apperr.New(403, apperr.CodeApprovalRequired, "Approval required")

		_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
		require.Error(t, err)
		assert.Equal(t, apperr.CodeApprovalRequired, err.(*apperr.Error).Code)
		assert.Zero(t, f.mutator.attempts["1"])
	})

	t.Run("stale scope", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
		f.seedDraft(t, map[string]string{"1": "A"})

		_, err := f.executor.Apply(context.Background(), f.applyCommand("stale-scope-id"))
		require.Error(t, err)
		appErr := err.(*apperr.Error)
		assert.Equal(t, apperr.CodeScopeInvalid, appErr.Code)
		assert.Equal(t, 409, appErr.Status)
	})

	t.Run("rules drift", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
		resolution := f.seedDraft(t, map[string]string{"1": "A"})

		cmd := f.applyCommand(resolution.ScopeID)
		cmd.RulesHash = HashRules(map[string]interface{}{"maxLength": 70})

		_, err := f.executor.Apply(context.Background(), cmd)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeRulesChanged, err.(*apperr.Error).Code)
	})

	t.Run("omitted rules hash skips drift check", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})

		resolution, err := f.executor.Scope.ResolveScope(context.Background(), testProjectID, PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
		require.NoError(t, err)

		projectObjID, err := primitive.ObjectIDFromHex(testProjectID)
		require.NoError(t, err)

		// The only draft for this scope carries real rules. A caller that
		// omits the hash gets the draft-lookup miss, not a drift conflict.
		require.NoError(t, f.drafts.Insert(context.Background(), &PlaybookDraft{
			ProjectID:    projectObjID,
			PlaybookID:   PlaybookMissingSeoTitle,
			ScopeID:      resolution.ScopeID,
			RulesHash:    HashRules(map[string]interface{}{"maxLength": 70}),
			Status:       DraftStatusReady,
			ScopeItemIDs: resolution.AffectedItemIDs,
			DraftItems:   []DraftItem{{ItemID: "1", Field: catalog.FieldSeoTitle, FinalSuggestion: "A"}},
		}))

		_, err = f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
		require.Error(t, err)
		assert.Equal(t, apperr.CodeDraftNotFound, err.(*apperr.Error).Code)
	})

	t.Run("no draft", func(t *testing.T) {
		f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
		resolution, err := f.executor.Scope.ResolveScope(context.Background(), testProjectID, PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
		require.NoError(t, err)

		_, err = f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
		require.Error(t, err)
		assert.Equal(t, apperr.CodeDraftNotFound, err.(*apperr.Error).Code)
	})
}

func TestApplyBlockedThenApprovedSucceeds(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
	resolution := f.seedDraft(t, map[string]string{"1": "A"})
	f.gov.authorizeErr = apperr.New(403, apperr.CodeApprovalRequired, "Approval required")

	_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.Error(t, err)

	f.gov.authorizeErr = nil
	result, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)
}

func TestApplyFailsWhenAuditWriteFails(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
	resolution := f.seedDraft(t, map[string]string{"1": "A"})
	f.gov.recordErr = fmt.Errorf("audit store down")

	_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	assert.Error(t, err)
	assert.Empty(t, f.runs.runs)
}

func TestApplyRecordsAuditAndPublishesEvent(t *testing.T) {
	f := newApplyFixture(t, []common_models.CatalogItem{productItem("1", nil)})
	resolution := f.seedDraft(t, map[string]string{"1": "A"})

	_, err := f.executor.Apply(context.Background(), f.applyCommand(resolution.ScopeID))
	require.NoError(t, err)

	require.Len(t, f.gov.recorded, 1)
	assert.Equal(t, PlaybookMissingSeoTitle+":"+resolution.ScopeID, f.gov.recorded[0])

	require.Len(t, f.events.events, 1)
	assert.Equal(t, RunTypeApply, f.events.events[0].RunType)
	assert.Equal(t, 1, f.events.events[0].UpdatedCount)
}
