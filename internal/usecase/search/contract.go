package search

import (
	"context"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
	"github.com/meridian-data/searchbridge/internal/domain/search/result"
)

// Repository defines the storage contract for the two retrieval legs.
type Repository interface {
	Dense(
		ctx context.Context, collection string,
		vector []float32, filters filter.Expression, topK int,
		returnFields []string,
	) ([]result.Result, error)

	Lexical(
		ctx context.Context, collection, field, query string,
		filters filter.Expression, topK int,
		returnFields []string,
	) ([]result.Result, error)
}

// CollectionReader resolves collection shapes and the live index projection.
type CollectionReader interface {
	Get(ctx context.Context, name string) (schema.CollectionShape, error)
	LiveFields(ctx context.Context, name string) ([]string, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
