package engine

import (
	"context"
	"strings"

	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
)

// OpenAICreator is reported for every model run through the OpenAI API.
const OpenAICreator = "OpenAI"

// CreatorResolver maps a model id to the organisation that built it.
// Implementations never fail; they fall back to model.UnknownCreator.
type CreatorResolver interface {
	Resolve(ctx context.Context, modelID, api string) string
}

// ModelLookup is the part of Catalog the resolver needs.
type ModelLookup interface {
	Lookup(ctx context.Context, modelID string) (CatalogModel, bool, error)
}

// Resolver is the catalog-backed CreatorResolver.
type Resolver struct {
	Catalog ModelLookup
}

// CreatorResolver returns a Resolver backed by the engine's catalog.
func (e *Engine) CreatorResolver() *Resolver {
	return &Resolver{Catalog: e.Catalog()}
}

// Resolve implements CreatorResolver.
func (r *Resolver) Resolve(ctx context.Context, modelID, api string) string {
	switch api {
	case model.APIOpenAI:
		return OpenAICreator
	case model.APIOpenRouter:
	default:
		output.Logger.Warn("Creator lookup skipped: unknown api", "model", modelID, "api", api)
		return model.UnknownCreator
	}

	if r.Catalog == nil {
		return model.UnknownCreator
	}
	m, found, err := r.Catalog.Lookup(ctx, modelID)
	if err != nil {
		output.Logger.Warn("Creator lookup failed", "model", modelID, "error", err)
		return model.UnknownCreator
	}
	if !found {
		output.Logger.Warn("Creator lookup: model not in catalog", "model", modelID)
		return model.UnknownCreator
	}
	return creatorFromID(m.ID)
}

// creatorFromID returns the organisation prefix of "org/model".
func creatorFromID(id string) string {
	org, _, found := strings.Cut(id, "/")
	if !found || strings.TrimSpace(org) == "" {
		return model.UnknownCreator
	}
	return org
}

// KnownCreator reports whether creator is a real resolved name.
func KnownCreator(creator string) bool {
	c := strings.TrimSpace(creator)
	return c != "" && c != model.UnknownCreator
}
