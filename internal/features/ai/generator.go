package ai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// GenerateRequest carries everything the metadata generator needs for one
// catalog item.
type GenerateRequest struct {
	ProjectID  string
	PlaybookID string
	Field      string
	ItemTitle  string
	ItemHandle string
	StoreName  string
}

// Generator produces suggested metadata for a single item. Draft generation
// is the only workflow path allowed to hold a Generator.
type Generator interface {
	GenerateMetadata(ctx context.Context, req GenerateRequest) (string, error)
}

// TemplateGenerator is the deterministic default implementation. Generation
// quality is owned by the external NLG service in production; this keeps the
// workflow runnable without it.
type TemplateGenerator struct{}

func NewGenerator() Generator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) GenerateMetadata(ctx context.Context, req GenerateRequest) (string, error) {
	title := strings.TrimSpace(req.ItemTitle)
	if title == "" {
		// No usable source text: an empty suggestion becomes a skip downstream.
		return "", nil
	}

	switch req.Field {
	case "seo_title":
		if req.StoreName != "" {
			return fmt.Sprintf("%s | %s", title, req.StoreName), nil
		}
		return title, nil
	case "seo_description":
		return fmt.Sprintf("Discover %s. Shop now for fast shipping and easy returns.", title), nil
	default:
		return "", fmt.Errorf("unsupported field %q", req.Field)
	}
}

// CountingGenerator wraps another Generator and counts invocations. Tests use
// it to prove Apply never reaches the AI collaborator.
type CountingGenerator struct {
	Inner Generator
	calls atomic.Int64
}

func NewCountingGenerator(inner Generator) *CountingGenerator {
	return &CountingGenerator{Inner: inner}
}

func (g *CountingGenerator) GenerateMetadata(ctx context.Context, req GenerateRequest) (string, error) {
	g.calls.Add(1)
	return g.Inner.GenerateMetadata(ctx, req)
}

func (g *CountingGenerator) Calls() int64 {
	return g.calls.Load()
}
