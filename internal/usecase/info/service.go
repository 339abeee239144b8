package info

import (
	"context"
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain/schema"
	"github.com/meridian-data/searchbridge/internal/usecase/collection"
	"github.com/meridian-data/searchbridge/internal/usecase/tabular"
)

// Sizer reports the keyspace size of the vector store.
type Sizer interface {
	DBSize(ctx context.Context) (int64, error)
}

// Collections lists collections and their live stats.
type Collections interface {
	List(ctx context.Context) ([]schema.CollectionShape, error)
	Stats(ctx context.Context, name string) (collection.Stats, error)
}

// Tables reports relational table stats.
type Tables interface {
	Stats(ctx context.Context) ([]tabular.TableStats, error)
}

// Info is the full picture of what the gateway can currently search.
type Info struct {
	TotalKeys   int64
	Collections []collection.Stats
	Tables      []tabular.TableStats
}

// Service aggregates store-level statistics for the info tool.
type Service struct {
	sizer  Sizer
	colls  Collections
	tables Tables
}

// New creates an info service. tables can be nil when no relational store is
// configured.
func New(sizer Sizer, colls Collections, tables Tables) *Service {
	return &Service{sizer: sizer, colls: colls, tables: tables}
}

// Collect gathers the keyspace size, per-collection stats and, when
// configured, relational table stats.
func (s *Service) Collect(ctx context.Context) (Info, error) {
	size, err := s.sizer.DBSize(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("dbsize: %w", err)
	}

	shapes, err := s.colls.List(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("list collections: %w", err)
	}

	collStats := make([]collection.Stats, 0, len(shapes))
	for _, shape := range shapes {
		st, err := s.colls.Stats(ctx, shape.Name())
		if err != nil {
			// a collection whose index is mid-rebuild still gets listed
			collStats = append(collStats, collection.Stats{Name: shape.Name()})
			continue
		}
		collStats = append(collStats, st)
	}

	out := Info{TotalKeys: size, Collections: collStats}

	if s.tables != nil {
		tableStats, err := s.tables.Stats(ctx)
		if err != nil {
			return Info{}, fmt.Errorf("table stats: %w", err)
		}
		out.Tables = tableStats
	}

	return out, nil
}
