package playbook

import (
	"context"
	"fmt"
	"testing"

	common_models "go-deo/internal/common/models"
	"go-deo/internal/features/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalogRepo serves catalog items from memory in insertion order, which
// stands in for the repository's position sort.
type fakeCatalogRepo struct {
	items []common_models.CatalogItem
}

func (f *fakeCatalogRepo) ListByAssetType(ctx context.Context, projectID string, assetType common_models.AssetType) ([]common_models.CatalogItem, error) {
	var out []common_models.CatalogItem
	for _, item := range f.items {
		if item.AssetType == assetType {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetByExternalID(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string) (*common_models.CatalogItem, error) {
	for i := range f.items {
		if f.items[i].AssetType == assetType && f.items[i].ExternalID == externalID {
			return &f.items[i], nil
		}
	}
	return nil, fmt.Errorf("item %s not found", externalID)
}

func (f *fakeCatalogRepo) UpsertItems(ctx context.Context, projectID string, items []common_models.CatalogItem) error {
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeCatalogRepo) SetSeoField(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error {
	for i := range f.items {
		if f.items[i].AssetType == assetType && f.items[i].ExternalID == externalID {
			v := value
			if field == catalog.FieldSeoDescription {
				f.items[i].SeoDescription = &v
			} else {
				f.items[i].SeoTitle = &v
			}
			return nil
		}
	}
	return fmt.Errorf("item %s not found", externalID)
}

func strPtr(s string) *string { return &s }

func productItem(externalID string, seoTitle *string) common_models.CatalogItem {
	return common_models.CatalogItem{
		AssetType:  common_models.AssetTypeProducts,
		ExternalID: externalID,
		Handle:     "handle-" + externalID,
		Title:      "Product " + externalID,
		SeoTitle:   seoTitle,
	}
}

func TestEvaluateAffectedMissingSemantics(t *testing.T) {
	repo := &fakeCatalogRepo{items: []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", strPtr("")),
		productItem("3", strPtr("   ")),
		productItem("4", strPtr("Has a title")),
	}}
	resolver := NewScopeResolver(repo)

	affected, err := resolver.EvaluateAffected(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts)
	require.NoError(t, err)

	// Unset, empty and whitespace-only all count as missing.
	assert.Equal(t, []string{"1", "2", "3"}, affected)
}

func TestEvaluateAffectedRejectsLegacyPlaybookID(t *testing.T) {
	resolver := NewScopeResolver(&fakeCatalogRepo{})

	_, err := resolver.EvaluateAffected(context.Background(), "p1", "missing_seo_title_products", common_models.AssetTypeProducts)
	assert.Error(t, err)
}

func TestResolveScopeIdempotentAgainstUnchangedCatalog(t *testing.T) {
	repo := &fakeCatalogRepo{items: []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", strPtr("done")),
		productItem("3", nil),
	}}
	resolver := NewScopeResolver(repo)

	first, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)
	second, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ScopeID, second.ScopeID)
	assert.Equal(t, []string{"1", "3"}, first.AffectedItemIDs)
}

func TestResolveScopeChangesWhenCatalogChanges(t *testing.T) {
	repo := &fakeCatalogRepo{items: []common_models.CatalogItem{
		productItem("1", nil),
		productItem("2", nil),
	}}
	resolver := NewScopeResolver(repo)

	before, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)

	// Merchant fixes one item outside the system.
	require.NoError(t, repo.SetSeoField(context.Background(), "p1", common_models.AssetTypeProducts, "1", catalog.FieldSeoTitle, "fixed"))

	after, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)

	assert.NotEqual(t, before.ScopeID, after.ScopeID)
	assert.Equal(t, []string{"2"}, after.AffectedItemIDs)
}

func TestResolveScopeExplicitRefs(t *testing.T) {
	resolver := NewScopeResolver(&fakeCatalogRepo{})

	tests := []struct {
		name      string
		assetType common_models.AssetType
		refs      []string
		wantIDs   []string
		wantErr   bool
	}{
		{
			name:      "product refs",
			assetType: common_models.AssetTypeProducts,
			refs:      []string{"product_id:10", "product_id:11"},
			wantIDs:   []string{"10", "11"},
		},
		{
			name:      "page refs",
			assetType: common_models.AssetTypePages,
			refs:      []string{"page_handle:about-us"},
			wantIDs:   []string{"about-us"},
		},
		{
			name:      "wrong prefix for asset type",
			assetType: common_models.AssetTypePages,
			refs:      []string{"product_id:10"},
			wantErr:   true,
		},
		{
			name:      "empty identifier",
			assetType: common_models.AssetTypeProducts,
			refs:      []string{"product_id:"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, tt.assetType, tt.refs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, res.AffectedItemIDs)
		})
	}
}

func TestResolveScopeAssetTypesAreDistinctScopes(t *testing.T) {
	repo := &fakeCatalogRepo{items: []common_models.CatalogItem{
		{AssetType: common_models.AssetTypeProducts, ExternalID: "x", Title: "P"},
		{AssetType: common_models.AssetTypePages, ExternalID: "x", Title: "Pg"},
	}}
	resolver := NewScopeResolver(repo)

	products, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypeProducts, nil)
	require.NoError(t, err)
	pages, err := resolver.ResolveScope(context.Background(), "p1", PlaybookMissingSeoTitle, common_models.AssetTypePages, nil)
	require.NoError(t, err)

	assert.NotEqual(t, products.ScopeID, pages.ScopeID)
}
