package tabular

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/repository/tabular"
)

// Service exposes structured relational access for exact lookups that
// retrieval cannot answer.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// TableStats pairs a table with its row count.
type TableStats struct {
	Name string
	Rows int64
}

// New creates a tabular service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Query returns rows matching the conjunctive filters.
func (s *Service) Query(ctx context.Context, table string, filters map[string]any, limit int) ([]map[string]any, error) {
	rows, err := s.repo.Query(ctx, table, filters, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Table queried",
		zap.String("table", table),
		zap.Int("filters", len(filters)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// RawQuery runs a caller-supplied read-only SQL statement.
func (s *Service) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.repo.RawQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Raw query executed", zap.Int("rows", len(rows)))
	return rows, nil
}

// Insert adds one row.
func (s *Service) Insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	return s.repo.Insert(ctx, table, values)
}

// Update modifies matching rows and reports how many changed.
func (s *Service) Update(ctx context.Context, table string, values, filters map[string]any) (int64, error) {
	affected, err := s.repo.Update(ctx, table, values, filters)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Rows updated", zap.String("table", table), zap.Int64("affected", affected))
	return affected, nil
}

// Delete removes matching rows and reports how many went away.
func (s *Service) Delete(ctx context.Context, table string, filters map[string]any) (int64, error) {
	affected, err := s.repo.Delete(ctx, table, filters)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Rows deleted", zap.String("table", table), zap.Int64("affected", affected))
	return affected, nil
}

// TableSchema describes a table's columns.
func (s *Service) TableSchema(ctx context.Context, table string) ([]tabular.Column, error) {
	return s.repo.TableSchema(ctx, table)
}

// Stats lists every table with its row count.
func (s *Service) Stats(ctx context.Context) ([]TableStats, error) {
	tables, err := s.repo.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	stats := make([]TableStats, 0, len(tables))
	for _, tbl := range tables {
		n, err := s.repo.RowCount(ctx, tbl)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", tbl, err)
		}
		stats = append(stats, TableStats{Name: tbl, Rows: n})
	}
	return stats, nil
}
