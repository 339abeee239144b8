package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/record"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// Service turns raw rows into embedded records and writes them in bulk.
type Service struct {
	colls  Collections
	recs   Records
	embed  Embedder
	logger *zap.Logger
}

// New creates an ingestion service.
func New(colls Collections, recs Records, embed Embedder, logger *zap.Logger) *Service {
	return &Service{colls: colls, recs: recs, embed: embed, logger: logger}
}

// Store ensures the collection, embeds each row's text and inserts the
// batch. It returns the number of records submitted to storage; the index
// picks them up asynchronously, so readers may briefly not see them.
func (s *Service) Store(ctx context.Context, collection, schemaType string, rows []map[string]any) (int, error) {
	if len(rows) == 0 {
		s.logger.Warn("Store called with no rows", zap.String("collection", collection))
		return 0, nil
	}

	shape, created, err := s.colls.Ensure(ctx, collection, schemaType)
	if err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}
	if created {
		s.logger.Info("Collection created on first write",
			zap.String("collection", collection),
			zap.String("schema_type", schemaType))
	}

	lexField, hasLex := shape.LexicalField()
	if !hasLex {
		return 0, fmt.Errorf("%w: collection %q has no text field to embed", domain.ErrInvalidSchema, collection)
	}

	records, texts, err := buildRecords(shape, lexField, rows)
	if err != nil {
		return 0, err
	}

	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed rows: %w", err)
	}
	if len(batch.Embeddings) != len(records) {
		return 0, fmt.Errorf("%w: got %d vectors for %d rows",
			domain.ErrEmbeddingProviderError, len(batch.Embeddings), len(records))
	}
	for i := range records {
		records[i] = records[i].WithVector(batch.Embeddings[i])
	}

	ids, err := s.recs.Insert(ctx, shape, records)
	if err != nil {
		return 0, fmt.Errorf("insert records: %w", err)
	}

	s.logger.Info("Records stored",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
		zap.Int("embedding_tokens", batch.TotalTokens))

	return len(ids), nil
}

// buildRecords validates rows against the shape and extracts the text to
// embed. A row's primary key value, when present, becomes the record id.
func buildRecords(
	shape schema.CollectionShape, lexField schema.FieldSpec, rows []map[string]any,
) ([]record.Record, []string, error) {
	pkName := shape.PrimaryKey().Name()

	records := make([]record.Record, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for i, row := range rows {
		text, ok := row[lexField.Name()].(string)
		if !ok || text == "" {
			return nil, nil, fmt.Errorf("%w: row %d has no %s", domain.ErrInvalidQuery, i, lexField.Name())
		}

		var id string
		values := make(map[string]any, len(row))
		for k, v := range row {
			if k == pkName {
				s, ok := v.(string)
				if !ok {
					return nil, nil, fmt.Errorf("%w: row %d: %s must be a string", domain.ErrInvalidQuery, i, pkName)
				}
				id = s
				continue
			}
			values[k] = v
		}

		rec, err := record.New(id, values, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %w", domain.ErrInvalidQuery, i, err)
		}
		records = append(records, rec)
		texts = append(texts, text)
	}
	return records, texts, nil
}
