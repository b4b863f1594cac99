package playbook

import (
	"context"
	"strings"
	"testing"

	common_models "go-deo/internal/common/models"

	"github.com/stretchr/testify/assert"
)

func TestApplyRulesPrefixSuffixAndTruncation(t *testing.T) {
	item := &common_models.CatalogItem{Title: "Widget", Handle: "widget"}

	tests := []struct {
		name         string
		raw          string
		rules        map[string]interface{}
		want         string
		wantWarnings int
	}{
		{
			name: "nil rules pass through",
			raw:  "Widget",
			want: "Widget",
		},
		{
			name:  "prefix and suffix",
			raw:   "Widget",
			rules: map[string]interface{}{"titlePrefix": "Buy ", "titleSuffix": " Online"},
			want:  "Buy Widget Online",
		},
		{
			name:         "max length truncates with warning",
			raw:          "A very long suggestion that exceeds the limit",
			rules:        map[string]interface{}{"maxLength": 10},
			want:         "A very lon",
			wantWarnings: 1,
		},
		{
			name:         "max length counts runes not bytes",
			raw:          "Ärmelloses Kleid für den Sommer",
			rules:        map[string]interface{}{"maxLength": 10},
			want:         "Ärmelloses",
			wantWarnings: 1,
		},
		{
			name: "json-decoded float max length",
			raw:  "Short",
			// JSON numbers decode as float64.
			rules: map[string]interface{}{"maxLength": float64(60)},
			want:  "Short",
		},
		{
			name:  "prefix skipped for empty suggestion",
			raw:   "",
			rules: map[string]interface{}{"titlePrefix": "Buy "},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := applyRules(context.Background(), tt.raw, item, tt.rules)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

func TestApplyRulesTransformScript(t *testing.T) {
	item := &common_models.CatalogItem{Title: "Widget", Handle: "widget"}

	got, warnings := applyRules(context.Background(), "Widget", item, map[string]interface{}{
		"transformScript": `result = suggestion + " - " + handle`,
	})

	assert.Empty(t, warnings)
	assert.Equal(t, "Widget - widget", got)
}

func TestApplyRulesTransformScriptFailureDegradesToWarning(t *testing.T) {
	item := &common_models.CatalogItem{Title: "Widget", Handle: "widget"}

	got, warnings := applyRules(context.Background(), "Widget", item, map[string]interface{}{
		"transformScript": `this is not tengo`,
	})

	// Broken script keeps the pre-transform suggestion and surfaces a warning.
	assert.Equal(t, "Widget", got)
	assert.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "transformScript:"))
}
