package catalog

import (
	"context"
	"errors"
	"fmt"

	common_models "go-deo/internal/common/models"

	"go.uber.org/zap"
)

// FailureKind classifies a storefront mutation failure so the apply loop can
// decide between retry, stop, and quota stop.
type FailureKind string

const (
	FailureRateLimit    FailureKind = "RATE_LIMIT"
	FailureLimitReached FailureKind = "LIMIT_REACHED"
	FailureGeneric      FailureKind = "ERROR"
)

// MutationError is returned by StorefrontMutator implementations when the
// downstream write fails.
type MutationError struct {
	Kind    FailureKind
	Message string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("storefront mutation failed (%s): %s", e.Kind, e.Message)
}

// ClassifyMutationError extracts the failure kind, treating any non-classified
// error as generic. Wrapped MutationErrors still classify.
func ClassifyMutationError(err error) FailureKind {
	var me *MutationError
	if errors.As(err, &me) {
		return me.Kind
	}
	return FailureGeneric
}

// Canonical SEO field names as used in draft items and storefront writes.
const (
	FieldSeoTitle       = "seo_title"
	FieldSeoDescription = "seo_description"
)

// StorefrontMutator is the single write path to live catalog data. Apply
// depends on this interface only; implementations own error classification.
type StorefrontMutator interface {
	UpdateSeo(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error
}

// RepositoryMutator writes through the catalog snapshot, which this
// deployment treats as the authoritative storefront copy (last write wins,
// merchants also edit outside the system).
type RepositoryMutator struct {
	Repo   CatalogRepository
	Logger *zap.Logger
}

func NewStorefrontMutator(repo CatalogRepository, logger *zap.Logger) StorefrontMutator {
	return &RepositoryMutator{Repo: repo, Logger: logger}
}

func (m *RepositoryMutator) UpdateSeo(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error {
	if field != FieldSeoTitle && field != FieldSeoDescription {
		return &MutationError{Kind: FailureGeneric, Message: fmt.Sprintf("unsupported field %q", field)}
	}

	if err := m.Repo.SetSeoField(ctx, projectID, assetType, externalID, field, value); err != nil {
		m.Logger.Warn("storefront mutation failed",
			zap.String("projectId", projectID),
			zap.String("externalId", externalID),
			zap.String("field", field),
			zap.Error(err),
		)
		return &MutationError{Kind: FailureGeneric, Message: err.Error()}
	}

	return nil
}
