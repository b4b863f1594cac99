package entitlement

import (
	"context"
	"testing"
	"time"

	common_models "go-deo/internal/common/models"
	"go-deo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPlans struct {
	plan string
}

func (s *staticPlans) PlanOf(ctx context.Context, projectID string) (string, error) {
	return s.plan, nil
}

type staticUsage struct {
	used int64
}

func (s *staticUsage) CountAiRunsSince(ctx context.Context, projectID string, since time.Time) (int64, error) {
	return s.used, nil
}

func newTestChecker(plan string, used int64) Checker {
	cfg := &config.Config{
		Quota: config.QuotaConfig{
			MonthlyLimitByPlan: map[string]int{
				common_models.PlanFree:   25,
				common_models.PlanPro:    500,
				common_models.PlanGrowth: 5000,
			},
			SoftThresholdPercent: 80,
			HardEnforcementByPlan: map[string]bool{
				common_models.PlanFree: true,
			},
		},
	}
	return NewChecker(&staticPlans{plan: plan}, &staticUsage{used: used}, cfg)
}

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		name         string
		plan         string
		action       Action
		wantEligible bool
	}{
		{"free plan cannot bulk apply", common_models.PlanFree, ActionPlaybookApply, false},
		{"free plan can preview", common_models.PlanFree, ActionPlaybookPreview, true},
		{"free plan can draft", common_models.PlanFree, ActionPlaybookDraft, true},
		{"pro plan can apply", common_models.PlanPro, ActionPlaybookApply, true},
		{"growth plan can apply", common_models.PlanGrowth, ActionPlaybookApply, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(tt.plan, 0)
			res, err := checker.CheckEligibility(context.Background(), "u1", "p1", tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEligible, res.Eligible)
			if !tt.wantEligible {
				assert.Contains(t, res.Reasons, ReasonPlanNotEligible)
			}
		})
	}
}

func TestCheckAiQuotaThresholds(t *testing.T) {
	tests := []struct {
		name       string
		plan       string
		used       int64
		wantStatus QuotaStatus
	}{
		{"well under limit", common_models.PlanPro, 10, QuotaOK},
		{"soft threshold warns", common_models.PlanPro, 400, QuotaWarning},
		{"just under soft threshold", common_models.PlanPro, 399, QuotaOK},
		{"over limit without hard enforcement warns", common_models.PlanPro, 500, QuotaWarning},
		{"over limit with hard enforcement blocks", common_models.PlanFree, 25, QuotaBlocked},
		{"free under limit is ok", common_models.PlanFree, 5, QuotaOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(tt.plan, tt.used)
			res, err := checker.CheckAiQuota(context.Background(), "u1", "p1", ActionPlaybookDraft)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantStatus != QuotaOK {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestCheckAiQuotaUnknownPlanUnlimited(t *testing.T) {
	checker := newTestChecker("enterprise-custom", 100000)
	res, err := checker.CheckAiQuota(context.Background(), "u1", "p1", ActionPlaybookDraft)
	require.NoError(t, err)
	assert.Equal(t, QuotaOK, res.Status)
}
