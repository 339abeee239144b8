package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
)

func emptyFilters() filter.Expression {
	e, _ := filter.NewExpression(nil)
	return e
}

func TestNew_Defaults(t *testing.T) {
	r, err := New("hello", "documents", "document", emptyFilters(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "hello" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Collection() != "documents" {
		t.Errorf("Collection() = %q", r.Collection())
	}
	if r.SchemaType() != "document" {
		t.Errorf("SchemaType() = %q", r.SchemaType())
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), DefaultTopK)
	}
	if !r.Filters().IsEmpty() {
		t.Error("Filters().IsEmpty() = false, want true")
	}
}

func TestNew_EmptyQuery(t *testing.T) {
	_, err := New("", "documents", "document", emptyFilters(), 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_EmptyCollection(t *testing.T) {
	_, err := New("query", "", "document", emptyFilters(), 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New(strings.Repeat("x", MaxQueryLength+1), "documents", "document", emptyFilters(), 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_QueryAtMaxLength(t *testing.T) {
	_, err := New(strings.Repeat("x", MaxQueryLength), "documents", "document", emptyFilters(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_TopKClamping(t *testing.T) {
	tests := []struct {
		name     string
		topK     int
		wantTopK int
	}{
		{"zero means unset", 0, DefaultTopK},
		{"normal", 100, 100},
		{"over max", 1000, MaxTopK},
		{"exactly max", MaxTopK, MaxTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("q", "documents", "document", emptyFilters(), tt.topK)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.TopK() != tt.wantTopK {
				t.Errorf("TopK() = %d, want %d", r.TopK(), tt.wantTopK)
			}
		})
	}
}

func TestNew_NegativeTopK(t *testing.T) {
	_, err := New("q", "documents", "document", emptyFilters(), -1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
	if !strings.Contains(err.Error(), "top_k") {
		t.Errorf("error = %q, want top_k named", err)
	}
}

func TestNew_WithFilters(t *testing.T) {
	m, _ := filter.NewMatch("lang", "go")
	expr, _ := filter.NewExpression([]filter.Predicate{m})

	r, err := New("query", "documents", "document", expr, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Filters().IsEmpty() {
		t.Error("Filters().IsEmpty() = true, want false")
	}
}
