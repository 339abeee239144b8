package ingest

import (
	"context"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/record"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// Collections ensures the target collection exists before writing.
type Collections interface {
	Ensure(ctx context.Context, name, schemaType string) (schema.CollectionShape, bool, error)
}

// Records writes record batches.
type Records interface {
	Insert(ctx context.Context, shape schema.CollectionShape, records []record.Record) ([]string, error)
}

// Embedder vectorizes the text of each row in one batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
