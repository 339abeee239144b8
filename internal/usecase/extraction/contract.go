package extraction

import (
	"context"

	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// LLM produces a completion for a system/user prompt pair.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Collections resolves shapes and tag vocabularies for prompt grounding.
type Collections interface {
	Get(ctx context.Context, name string) (schema.CollectionShape, error)
	DistinctValues(ctx context.Context, name, field string) ([]string, error)
}
