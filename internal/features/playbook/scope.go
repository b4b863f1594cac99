package playbook

import (
	"context"
	"fmt"
	"strings"

	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/features/catalog"
)

// CanonicalPlaybook validates a playbook identifier. Only the two canonical
// ids are accepted; legacy per-asset-type variants fail here, not downstream.
func CanonicalPlaybook(id string) (string, error) {
	switch id {
	case PlaybookMissingSeoTitle, PlaybookMissingSeoDescription:
		return id, nil
	}
	return "", apperr.Validation(fmt.Sprintf(
		"unknown playbookId %q; expected %q or %q",
		id, PlaybookMissingSeoTitle, PlaybookMissingSeoDescription,
	))
}

// TargetField maps a canonical playbook to the catalog field it remediates.
func TargetField(playbookID string) string {
	if playbookID == PlaybookMissingSeoDescription {
		return catalog.FieldSeoDescription
	}
	return catalog.FieldSeoTitle
}

// ScopeResolution binds "what preview looked at" to "what apply will touch".
type ScopeResolution struct {
	ScopeID         string
	AffectedItemIDs []string
}

type ScopeResolver interface {
	ResolveScope(ctx context.Context, projectID string, playbookID string, assetType common_models.AssetType, explicitRefs []string) (*ScopeResolution, error)
	EvaluateAffected(ctx context.Context, projectID string, playbookID string, assetType common_models.AssetType) ([]string, error)
}

type ScopeResolverImpl struct {
	CatalogRepo catalog.CatalogRepository
}

func NewScopeResolver(catalogRepo catalog.CatalogRepository) ScopeResolver {
	return &ScopeResolverImpl{CatalogRepo: catalogRepo}
}

// EvaluateAffected returns the ordered ids of items currently missing the
// playbook's target field. A field counts as missing when it is unset or
// blank after trimming. Ordering follows the catalog's stable position order
// so sampling and hashing reproduce across calls against unchanged data.
func (r *ScopeResolverImpl) EvaluateAffected(ctx context.Context, projectID string, playbookID string, assetType common_models.AssetType) ([]string, error) {
	canonical, err := CanonicalPlaybook(playbookID)
	if err != nil {
		return nil, err
	}
	if !assetType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid assetType %q", assetType))
	}

	items, err := r.CatalogRepo.ListByAssetType(ctx, projectID, assetType)
	if err != nil {
		return nil, err
	}

	field := TargetField(canonical)
	affected := make([]string, 0, len(items))
	for _, item := range items {
		if fieldMissing(&item, field) {
			affected = append(affected, item.ExternalID)
		}
	}

	return affected, nil
}

// ResolveScope computes the scope fingerprint for a run. With explicit refs
// the refs (prefix-validated for the asset type) are the scope basis;
// otherwise the full affected set is.
func (r *ScopeResolverImpl) ResolveScope(ctx context.Context, projectID string, playbookID string, assetType common_models.AssetType, explicitRefs []string) (*ScopeResolution, error) {
	canonical, err := CanonicalPlaybook(playbookID)
	if err != nil {
		return nil, err
	}
	if !assetType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid assetType %q", assetType))
	}

	var itemIDs []string
	if len(explicitRefs) > 0 {
		itemIDs, err = validateExplicitRefs(assetType, explicitRefs)
		if err != nil {
			return nil, err
		}
	} else {
		itemIDs, err = r.EvaluateAffected(ctx, projectID, canonical, assetType)
		if err != nil {
			return nil, err
		}
	}

	return &ScopeResolution{
		ScopeID:         ComputeScopeID(projectID, canonical, assetType, itemIDs),
		AffectedItemIDs: itemIDs,
	}, nil
}

func validateExplicitRefs(assetType common_models.AssetType, refs []string) ([]string, error) {
	expected := assetType.RefPrefix()

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !strings.HasPrefix(ref, expected) {
			return nil, apperr.Validation(fmt.Sprintf(
				"ref %q is not valid for asset type %s; expected prefix %q",
				ref, assetType, expected,
			))
		}
		id := strings.TrimPrefix(ref, expected)
		if id == "" {
			return nil, apperr.Validation(fmt.Sprintf("ref %q has an empty identifier", ref))
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func fieldMissing(item *common_models.CatalogItem, field string) bool {
	var value *string
	switch field {
	case catalog.FieldSeoTitle:
		value = item.SeoTitle
	case catalog.FieldSeoDescription:
		value = item.SeoDescription
	default:
		return false
	}

	return value == nil || strings.TrimSpace(*value) == ""
}
