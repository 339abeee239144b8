package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-data/searchbridge/internal/db"
	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/record"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// store is the consumer interface for record storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo stores ingestion records as flat hashes under the collection's key
// prefix, where the FT index picks them up.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert writes a batch of records in one pipelined HSET round trip and
// returns the stored identifiers in input order. When the shape's primary key
// is auto-generated, records without an id get a fresh uuid; otherwise a
// missing id is an error. Vector dimension is checked against the shape.
func (r *Repo) Insert(ctx context.Context, shape schema.CollectionShape, records []record.Record) ([]string, error) {
	if len(records) == 0 {
		return []string{}, nil
	}

	pk := shape.PrimaryKey()
	dim := shape.DenseVector().Dim()

	ids := make([]string, len(records))
	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		id := rec.ID()
		if id == "" {
			if !pk.IsAutoGenerated() {
				return nil, fmt.Errorf("%w: record %d has no %s", domain.ErrInvalidSchema, i, pk.Name())
			}
			id = uuid.NewString()
		}
		if len(rec.Vector()) != dim {
			return nil, fmt.Errorf("%w: record %d has dim %d, collection expects %d",
				domain.ErrVectorDimMismatch, i, len(rec.Vector()), dim)
		}

		fields, err := hashFromRecord(shape, id, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		ids[i] = id
		items[i] = db.HashSetItem{Key: recordKey(shape.Name(), id), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("hset records %s: %w", shape.Name(), err)
	}

	return ids, nil
}

// Get returns a stored record by id.
func (r *Repo) Get(ctx context.Context, shape schema.CollectionShape, id string) (record.Record, error) {
	m, err := r.store.HGetAll(ctx, recordKey(shape.Name(), id))
	if err != nil {
		return record.Record{}, fmt.Errorf("hgetall record %s: %w", id, err)
	}
	if len(m) == 0 {
		return record.Record{}, domain.ErrNotFound
	}
	return recordFromHash(shape, id, m), nil
}

// Delete removes a stored record.
func (r *Repo) Delete(ctx context.Context, collection, id string) error {
	key := recordKey(collection, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func recordKey(collection, id string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, collection, id)
}
