package tabular

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/repository/tabular"
)

// --- Mocks ---

type mockRepo struct {
	rows      []map[string]any
	queryErr  error
	affected  int64
	execErr   error
	columns   []tabular.Column
	schemaErr error
	tables    []string
	counts    map[string]int64
	countErr  error
}

func (m *mockRepo) Query(_ context.Context, _ string, _ map[string]any, _ int) ([]map[string]any, error) {
	return m.rows, m.queryErr
}

func (m *mockRepo) RawQuery(_ context.Context, _ string) ([]map[string]any, error) {
	return m.rows, m.queryErr
}

func (m *mockRepo) Insert(_ context.Context, _ string, _ map[string]any) (int64, error) {
	return m.affected, m.execErr
}

func (m *mockRepo) Update(_ context.Context, _ string, _, _ map[string]any) (int64, error) {
	return m.affected, m.execErr
}

func (m *mockRepo) Delete(_ context.Context, _ string, _ map[string]any) (int64, error) {
	return m.affected, m.execErr
}

func (m *mockRepo) TableSchema(_ context.Context, _ string) ([]tabular.Column, error) {
	return m.columns, m.schemaErr
}

func (m *mockRepo) ListTables(_ context.Context) ([]string, error) {
	return m.tables, nil
}

func (m *mockRepo) RowCount(_ context.Context, table string) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.counts[table], nil
}

func newTestService(repo *mockRepo) *Service {
	return New(repo, zap.NewNop())
}

// --- Tests ---

func TestQuery(t *testing.T) {
	repo := &mockRepo{rows: []map[string]any{{"company": "acme", "year": int64(2023)}}}
	svc := newTestService(repo)

	rows, err := svc.Query(context.Background(), "reports", map[string]any{"company": "acme"}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["company"] != "acme" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestQuery_Error(t *testing.T) {
	repo := &mockRepo{queryErr: errors.New("relation does not exist")}
	svc := newTestService(repo)

	_, err := svc.Query(context.Background(), "missing", nil, 10)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRawQuery(t *testing.T) {
	repo := &mockRepo{rows: []map[string]any{{"total": int64(12)}}}
	svc := newTestService(repo)

	rows, err := svc.RawQuery(context.Background(), "SELECT count(*) AS total FROM reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["total"] != int64(12) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestUpdateReportsAffected(t *testing.T) {
	repo := &mockRepo{affected: 3}
	svc := newTestService(repo)

	n, err := svc.Update(context.Background(), "reports",
		map[string]any{"status": "done"}, map[string]any{"year": 2023})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 affected, got %d", n)
	}
}

func TestDeleteReportsAffected(t *testing.T) {
	repo := &mockRepo{affected: 1}
	svc := newTestService(repo)

	n, err := svc.Delete(context.Background(), "reports", map[string]any{"company": "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 affected, got %d", n)
	}
}

func TestTableSchema(t *testing.T) {
	repo := &mockRepo{columns: []tabular.Column{
		{Name: "id", DataType: "bigint"},
		{Name: "company", DataType: "text", Nullable: true},
	}}
	svc := newTestService(repo)

	cols, err := svc.TableSchema(context.Background(), "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 || cols[1].Name != "company" {
		t.Fatalf("unexpected columns: %v", cols)
	}
}

func TestStats(t *testing.T) {
	repo := &mockRepo{
		tables: []string{"a", "b"},
		counts: map[string]int64{"a": 10, "b": 20},
	}
	svc := newTestService(repo)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 || stats[0].Rows != 10 || stats[1].Rows != 20 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestStats_CountError(t *testing.T) {
	repo := &mockRepo{tables: []string{"a"}, countErr: errors.New("denied")}
	svc := newTestService(repo)

	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
