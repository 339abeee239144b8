package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-data/searchbridge/internal/db"
)

type mockKV struct {
	data      map[string][]byte
	incrCalls []string
	expCalls  []struct {
		key string
		ttl time.Duration
		nx  bool
	}
	incrErr error
	expErr  error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) IncrBy(_ context.Context, key string, _ int64) error {
	m.incrCalls = append(m.incrCalls, key)
	return m.incrErr
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expCalls = append(m.expCalls, struct {
		key string
		ttl time.Duration
		nx  bool
	}{key, ttl, nx})
	return m.expErr
}

func TestIncrBy_SetsDailyTTL(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	err := s.IncrBy(context.Background(), "searchbridge:budget:prov:daily:2026-08-28", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kv.incrCalls) != 1 || len(kv.expCalls) != 1 {
		t.Fatalf("expected 1 INCRBY and 1 EXPIRE, got %d/%d", len(kv.incrCalls), len(kv.expCalls))
	}
	if kv.expCalls[0].ttl != 48*time.Hour {
		t.Errorf("expected daily TTL, got %v", kv.expCalls[0].ttl)
	}
	if !kv.expCalls[0].nx {
		t.Error("expected NX expire so repeat increments keep the original expiry")
	}
}

func TestIncrBy_SetsMonthlyTTL(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	err := s.IncrBy(context.Background(), "searchbridge:budget:prov:monthly:2026-08", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kv.expCalls[0].ttl != 62*24*time.Hour {
		t.Errorf("expected monthly TTL, got %v", kv.expCalls[0].ttl)
	}
}

func TestIncrBy_IncrError(t *testing.T) {
	kv := newMockKV()
	kv.incrErr = errors.New("conn refused")
	s := New(kv, time.Hour, time.Hour)

	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected error")
	}
	if len(kv.expCalls) != 0 {
		t.Error("EXPIRE should not run after failed INCRBY")
	}
}

func TestGet_ReturnsValue(t *testing.T) {
	kv := newMockKV()
	kv.data["k"] = []byte("420")
	s := New(kv, time.Hour, time.Hour)

	val, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 420 {
		t.Errorf("expected 420, got %d", val)
	}
}

func TestGet_MissingKeyIsZero(t *testing.T) {
	kv := newMockKV()
	s := New(kv, time.Hour, time.Hour)

	val, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 0 {
		t.Errorf("expected 0 for missing key, got %d", val)
	}
}

func TestGet_GarbageValue(t *testing.T) {
	kv := newMockKV()
	kv.data["k"] = []byte("not-a-number")
	s := New(kv, time.Hour, time.Hour)

	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected parse error")
	}
}
