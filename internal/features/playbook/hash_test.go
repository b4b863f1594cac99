package playbook

import (
	"testing"

	common_models "go-deo/internal/common/models"

	"github.com/stretchr/testify/assert"
)

func TestHashRulesNilSentinel(t *testing.T) {
	assert.Equal(t, RulesHashNone, HashRules(nil))
}

func TestHashRulesKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"titlePrefix": "Buy ",
		"maxLength":   60,
		"titleSuffix": " | Shop",
	}
	b := map[string]interface{}{
		"titleSuffix": " | Shop",
		"titlePrefix": "Buy ",
		"maxLength":   60,
	}

	assert.Equal(t, HashRules(a), HashRules(b))
}

func TestHashRulesDistinguishesValues(t *testing.T) {
	a := map[string]interface{}{"maxLength": 60}
	b := map[string]interface{}{"maxLength": 70}

	assert.NotEqual(t, HashRules(a), HashRules(b))
	assert.NotEqual(t, RulesHashNone, HashRules(a))
	assert.Len(t, HashRules(a), 64)
}

func TestHashRulesEmptyMapDiffersFromNil(t *testing.T) {
	assert.NotEqual(t, HashRules(nil), HashRules(map[string]interface{}{}))
}

func TestComputeScopeIDOrderIndependent(t *testing.T) {
	a := ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, []string{"3", "1", "2"})
	b := ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, []string{"1", "2", "3"})

	assert.Equal(t, a, b)
}

func TestComputeScopeIDVariesByDimension(t *testing.T) {
	base := ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, []string{"1", "2"})

	tests := []struct {
		name  string
		other string
	}{
		{
			name:  "different project",
			other: ComputeScopeID("p2", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, []string{"1", "2"}),
		},
		{
			name:  "different playbook",
			other: ComputeScopeID("p1", PlaybookMissingSeoDescription, common_models.AssetTypeProducts, []string{"1", "2"}),
		},
		{
			name:  "different asset type",
			other: ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypePages, []string{"1", "2"}),
		},
		{
			name:  "different membership",
			other: ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, []string{"1", "2", "3"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.other)
		})
	}
}

func TestComputeScopeIDDoesNotMutateInput(t *testing.T) {
	ids := []string{"c", "a", "b"}
	ComputeScopeID("p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, ids)

	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
