package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/meridian-data/searchbridge/internal/db"
	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// store is the consumer interface for collections (ISP).
//
//nolint:interfacebloat // collection repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DescribeIndex(ctx context.Context, name string) (*db.IndexInfo, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	TagValues(ctx context.Context, index, field string) ([]string, error)
}

// Repo implements the collection storage contract of the usecase layer.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Ensure makes the collection exist: HSET metadata then FT.CREATE from the
// shape, rolling back the HSET via DEL when FT.CREATE fails. When the
// collection already exists this is a no-op and the stored shape is NOT
// reconciled against the requested one; callers reusing a name with a
// different shape get the stored schema.
func (r *Repo) Ensure(ctx context.Context, shape schema.CollectionShape) (created bool, err error) {
	name := shape.Name()

	key := metaKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return false, nil
	}

	indexDef, err := buildIndex(shape)
	if err != nil {
		return false, fmt.Errorf("build index: %w", err)
	}
	hashData, err := shapeToHash(shape)
	if err != nil {
		return false, err
	}

	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return false, fmt.Errorf("hset collection %s: %w", name, err)
	}

	// FT.CREATE -- roll back the HSET on error
	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		cleanupErr := r.store.Del(ctx, key)
		return false, errors.Join(err, cleanupErr)
	}

	return true, nil
}

// Get retrieves a stored collection shape by name.
func (r *Repo) Get(ctx context.Context, name string) (schema.CollectionShape, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return schema.CollectionShape{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return schema.CollectionShape{}, domain.ErrNotFound
	}

	return shapeFromHash(m)
}

// List returns all stored collection shapes sorted by name.
func (r *Repo) List(ctx context.Context) ([]schema.CollectionShape, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []schema.CollectionShape{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	shapes := make([]schema.CollectionShape, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		s, err := shapeFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		shapes = append(shapes, s)
	}

	sort.Slice(shapes, func(i, j int) bool {
		return shapes[i].Name() < shapes[j].Name()
	})

	return shapes, nil
}

// Drop removes a collection: backup metadata, DEL hash, FT.DROPINDEX
// (restore the hash on error).
func (r *Repo) Drop(ctx context.Context, name string) error {
	key := metaKey(name)

	metaBackup, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return domain.ErrNotFound
	}

	idxName := indexName(name)
	idxExists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if !idxExists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}

	if err := r.store.DropIndex(ctx, idxName); err != nil {
		cleanupErr := r.store.HSet(ctx, key, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// RowCount returns the number of records in a collection.
func (r *Repo) RowCount(ctx context.Context, name string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(name), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// LiveFields returns the non-vector attribute names of the live index, read
// from the server rather than the stored shape. Searches project onto this
// list so results always reflect what is actually indexed.
func (r *Repo) LiveFields(ctx context.Context, name string) ([]string, error) {
	info, err := r.store.DescribeIndex(ctx, indexName(name))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("describe index %s: %w", name, err)
	}
	return info.NonVectorFields(), nil
}

// DistinctValues returns the distinct values of a TAG field, for feeding
// extraction prompts with the actual vocabulary of a collection.
func (r *Repo) DistinctValues(ctx context.Context, name, field string) ([]string, error) {
	vals, err := r.store.TagValues(ctx, indexName(name), field)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("tagvals %s.%s: %w", name, field, err)
	}
	sort.Strings(vals)
	return vals, nil
}

// Key patterns: searchbridge:collection:{name}, searchbridge:{name}:idx, searchbridge:{name}:

func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func collectionPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}
