package document

import (
	"context"
	"testing"

	"github.com/meridian-data/searchbridge/internal/db"
	"github.com/meridian-data/searchbridge/internal/domain/record"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

const testVectorDim = 4

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn   func(ctx context.Context, key string) (map[string]string, error)
	delFn       func(ctx context.Context, key string) error
	existsFn    func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testShape(t *testing.T) schema.CollectionShape {
	t.Helper()
	s, err := schema.Document("notes", testVectorDim)
	if err != nil {
		t.Fatalf("build test shape: %v", err)
	}
	return s
}

func testVector() []float32 {
	vec := make([]float32, testVectorDim)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func testRecord(t *testing.T, id string) record.Record {
	t.Helper()
	rec, err := record.New(id, map[string]any{
		"content": "hello world",
		"source":  "unit-test",
	}, testVector())
	if err != nil {
		t.Fatalf("build test record: %v", err)
	}
	return rec
}
