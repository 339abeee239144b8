package tabular

import (
	"context"

	"github.com/meridian-data/searchbridge/internal/repository/tabular"
)

// Repository defines the relational storage contract.
type Repository interface {
	Query(ctx context.Context, table string, filters map[string]any, limit int) ([]map[string]any, error)
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)
	Insert(ctx context.Context, table string, values map[string]any) (int64, error)
	Update(ctx context.Context, table string, values, filters map[string]any) (int64, error)
	Delete(ctx context.Context, table string, filters map[string]any) (int64, error)
	TableSchema(ctx context.Context, table string) ([]tabular.Column, error)
	ListTables(ctx context.Context) ([]string, error)
	RowCount(ctx context.Context, table string) (int64, error)
}
