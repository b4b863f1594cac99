package entitlement

import (
	"context"
	"fmt"
	"time"

	common_models "go-deo/internal/common/models"
	"go-deo/internal/config"
)

type Action string

const (
	ActionPlaybookPreview = Action("playbook_preview")
	ActionPlaybookDraft   = Action("playbook_draft_generate")
	ActionPlaybookApply   = Action("automation_playbook_apply")
)

const ReasonPlanNotEligible = "plan_not_eligible"

type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
	PlanID   string   `json:"planId"`
}

type QuotaStatus string

const (
	QuotaOK      QuotaStatus = "ok"
	QuotaWarning QuotaStatus = "warning"
	QuotaBlocked QuotaStatus = "blocked"
)

type QuotaResult struct {
	Status QuotaStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
	Limit  int         `json:"limit"`
	Used   int64       `json:"used"`
}

// PlanResolver yields the plan fact for a project; billing owns it.
type PlanResolver interface {
	PlanOf(ctx context.Context, projectID string) (string, error)
}

// AiUsageReader counts aiUsed ledger rows inside a window. Satisfied by the
// playbook run repository.
type AiUsageReader interface {
	CountAiRunsSince(ctx context.Context, projectID string, since time.Time) (int64, error)
}

type Checker interface {
	CheckEligibility(ctx context.Context, userID string, projectID string, action Action) (*Eligibility, error)
	CheckAiQuota(ctx context.Context, userID string, projectID string, action Action) (*QuotaResult, error)
}

type CheckerImpl struct {
	Plans PlanResolver
	Usage AiUsageReader
	Quota config.QuotaConfig
}

func NewChecker(plans PlanResolver, usage AiUsageReader, cfg *config.Config) Checker {
	return &CheckerImpl{
		Plans: plans,
		Usage: usage,
		Quota: cfg.Quota,
	}
}

// CheckEligibility gates the mutating path only: free-plan projects can view
// estimates and previews but cannot bulk apply.
func (c *CheckerImpl) CheckEligibility(ctx context.Context, userID string, projectID string, action Action) (*Eligibility, error) {
	plan, err := c.Plans.PlanOf(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &Eligibility{Eligible: true, Reasons: []string{}, PlanID: plan}

	if action == ActionPlaybookApply && plan == common_models.PlanFree {
		result.Eligible = false
		result.Reasons = append(result.Reasons, ReasonPlanNotEligible)
	}

	return result, nil
}

// CheckAiQuota applies QuotaConfig thresholds to the current billing window
// (calendar month). Warning never blocks; blocked only fires when the plan
// has hard enforcement enabled.
func (c *CheckerImpl) CheckAiQuota(ctx context.Context, userID string, projectID string, action Action) (*QuotaResult, error) {
	plan, err := c.Plans.PlanOf(ctx, projectID)
	if err != nil {
		return nil, err
	}

	limit := c.Quota.MonthlyLimitByPlan[plan]
	if limit <= 0 {
		return &QuotaResult{Status: QuotaOK, Limit: limit}, nil
	}

	used, err := c.Usage.CountAiRunsSince(ctx, projectID, monthStart(time.Now()))
	if err != nil {
		return nil, err
	}

	result := &QuotaResult{Status: QuotaOK, Limit: limit, Used: used}

	if used >= int64(limit) {
		if c.Quota.HardEnforcementByPlan[plan] {
			result.Status = QuotaBlocked
			result.Reason = fmt.Sprintf("monthly AI limit of %d reached", limit)
			return result, nil
		}
		result.Status = QuotaWarning
		result.Reason = fmt.Sprintf("monthly AI limit of %d reached (advisory)", limit)
		return result, nil
	}

	if used*100 >= int64(limit*c.Quota.SoftThresholdPercent) {
		result.Status = QuotaWarning
		result.Reason = fmt.Sprintf("%d of %d monthly AI runs used", used, limit)
	}

	return result, nil
}

func monthStart(now time.Time) time.Time {
	year, month, _ := now.UTC().Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}
