package collection

import (
	"context"

	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// Repository defines the storage contract for collections.
type Repository interface {
	Ensure(ctx context.Context, shape schema.CollectionShape) (created bool, err error)
	Get(ctx context.Context, name string) (schema.CollectionShape, error)
	List(ctx context.Context) ([]schema.CollectionShape, error)
	Drop(ctx context.Context, name string) error
	RowCount(ctx context.Context, name string) (int, error)
	LiveFields(ctx context.Context, name string) ([]string, error)
	DistinctValues(ctx context.Context, name, field string) ([]string, error)
}
