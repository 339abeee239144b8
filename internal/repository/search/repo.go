package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-data/searchbridge/internal/db"
	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
	"github.com/meridian-data/searchbridge/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo executes the two retrieval legs against the FT index.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Dense performs a KNN vector search on a collection with filter pre-filtering.
// returnFields is the payload projection; vector attributes never belong in it.
func (r *Repo) Dense(
	ctx context.Context, collection string,
	vector []float32, filters filter.Expression, topK int,
	returnFields []string,
) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(collection),
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}

	return parseEntries(sr, collection), nil
}

// Lexical performs a BM25 keyword search against the collection's text field.
func (r *Repo) Lexical(
	ctx context.Context, collection, field, query string,
	filters filter.Expression, topK int,
	returnFields []string,
) ([]result.Result, error) {
	q := &db.TextQuery{
		IndexName:    indexName(collection),
		Field:        field,
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", collection, err)
	}

	return parseEntries(sr, collection), nil
}

// parseEntries converts db.SearchResult into []result.Result, trimming the
// record-key prefix into the document id.
func parseEntries(sr *db.SearchResult, collection string) []result.Result {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := recordPrefix(collection)
	results := make([]result.Result, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		results = append(results, result.New(id, entry.Score, parseFields(entry.Fields)))
	}

	return results
}

// parseFields widens flat hash fields into typed values: numerics become
// float64, everything else stays a string.
func parseFields(fields map[string]string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
		} else {
			out[k] = v
		}
	}
	return out
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

func recordPrefix(collection string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
}
