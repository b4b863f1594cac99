package playbook

import (
	"time"

	"go-deo/internal/common/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical playbook identifiers. Legacy per-asset-type variants are rejected
// at the evaluator boundary, not silently mapped.
const (
	PlaybookMissingSeoTitle       = "missing_seo_title"
	PlaybookMissingSeoDescription = "missing_seo_description"
)

type DraftStatus string

const (
	DraftStatusPending DraftStatus = "PENDING"
	DraftStatusReady   DraftStatus = "READY"
	DraftStatusFailed  DraftStatus = "FAILED"
)

// DraftItem is one suggested mutation. An empty FinalSuggestion means "no
// usable suggestion" and translates to a skip at apply time.
type DraftItem struct {
	ItemID          string   `bson:"item_id" json:"itemId"`
	Field           string   `bson:"field" json:"field"`
	RawSuggestion   string   `bson:"raw_suggestion" json:"rawSuggestion"`
	FinalSuggestion string   `bson:"final_suggestion" json:"finalSuggestion"`
	RuleWarnings    []string `bson:"rule_warnings,omitempty" json:"ruleWarnings,omitempty"`
}

type DraftCounts struct {
	AffectedTotal     int `bson:"affected_total" json:"affectedTotal"`
	DraftGenerated    int `bson:"draft_generated" json:"draftGenerated"`
	NoSuggestionCount int `bson:"no_suggestion_count" json:"noSuggestionCount"`
}

// PlaybookDraft is one generated batch, unique per
// (project, playbook, scope, rulesHash) and immutable once READY.
type PlaybookDraft struct {
	ID               primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	ProjectID        primitive.ObjectID     `bson:"project_id" json:"projectId"`
	PlaybookID       string                 `bson:"playbook_id" json:"playbookId"`
	ScopeID          string                 `bson:"scope_id" json:"scopeId"`
	RulesHash        string                 `bson:"rules_hash" json:"rulesHash"`
	Status           DraftStatus            `bson:"status" json:"status"`
	ScopeItemIDs     []string               `bson:"scope_item_ids" json:"scopeItemIds"`
	SampleProductIDs []string               `bson:"sample_product_ids" json:"sampleProductIds"`
	DraftItems       []DraftItem            `bson:"draft_items" json:"draftItems"`
	Counts           DraftCounts            `bson:"counts" json:"counts"`
	Rules            map[string]interface{} `bson:"rules,omitempty" json:"rules,omitempty"`
	CreatedByUserID  string                 `bson:"created_by_user_id" json:"createdByUserId"`
	CreatedAt        time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time              `bson:"updated_at" json:"updatedAt"`
}

// ItemFor returns the draft entry for an item, if any.
func (d *PlaybookDraft) ItemFor(itemID string) (*DraftItem, bool) {
	for i := range d.DraftItems {
		if d.DraftItems[i].ItemID == itemID {
			return &d.DraftItems[i], true
		}
	}
	return nil, false
}

type RunType string

const (
	RunTypePreviewGenerate RunType = "PREVIEW_GENERATE"
	RunTypeDraftGenerate   RunType = "DRAFT_GENERATE"
	RunTypeApply           RunType = "APPLY"
)

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// PlaybookRun is an append-only ledger row, one per logical invocation.
// Rows with RunType APPLY always carry AiUsed=false; apply has no code path
// to the AI collaborator.
type PlaybookRun struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	ProjectID       primitive.ObjectID     `bson:"project_id" json:"projectId"`
	CreatedByUserID string                 `bson:"created_by_user_id" json:"createdByUserId"`
	PlaybookID      string                 `bson:"playbook_id" json:"playbookId"`
	ScopeID         string                 `bson:"scope_id" json:"scopeId"`
	RulesHash       string                 `bson:"rules_hash" json:"rulesHash"`
	RunType         RunType                `bson:"run_type" json:"runType"`
	Status          RunStatus              `bson:"status" json:"status"`
	AiUsed          bool                   `bson:"ai_used" json:"aiUsed"`
	Reused          bool                   `bson:"reused" json:"reused"`
	ReusedFromRunID *primitive.ObjectID    `bson:"reused_from_run_id,omitempty" json:"reusedFromRunId,omitempty"`
	IdempotencyKey  string                 `bson:"idempotency_key" json:"idempotencyKey"`
	Meta            map[string]interface{} `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt       time.Time              `bson:"created_at" json:"createdAt"`
}

// ApplyItemStatus is the per-item outcome within one apply run.
type ApplyItemStatus string

const (
	ApplyItemUpdated      ApplyItemStatus = "UPDATED"
	ApplyItemSkipped      ApplyItemStatus = "SKIPPED"
	ApplyItemFailed       ApplyItemStatus = "FAILED"
	ApplyItemLimitReached ApplyItemStatus = "LIMIT_REACHED"
)

type ApplyItemResult struct {
	ItemID string          `json:"itemId"`
	Status ApplyItemStatus `json:"status"`
}

// ApplyResult is the aggregate outcome of one apply run. A stopped run is a
// valid result, not an error.
type ApplyResult struct {
	TotalAffectedProducts int               `json:"totalAffectedProducts"`
	AttemptedCount        int               `json:"attemptedCount"`
	UpdatedCount          int               `json:"updatedCount"`
	SkippedCount          int               `json:"skippedCount"`
	Stopped               bool              `json:"stopped"`
	FailureReason         string            `json:"failureReason,omitempty"`
	StoppedAtProductID    string            `json:"stoppedAtProductId,omitempty"`
	LimitReached          bool              `json:"limitReached"`
	Results               []ApplyItemResult `json:"results"`
}

// UsageSummary aggregates the run ledger for trust reporting.
type UsageSummary struct {
	TotalRuns   int64 `json:"totalRuns"`
	TotalAiRuns int64 `json:"totalAiRuns"`
	ApplyAiRuns int64 `json:"applyAiRuns"`
	RunsAvoided int64 `json:"runsAvoided"`
}

func hexObjectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid object id")
	}
	return objID, nil
}
