package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/meridian-data/searchbridge/internal/domain"
)

func validFields(t *testing.T) []FieldSpec {
	t.Helper()
	return []FieldSpec{
		mustTestField(t, "doc_id", PrimaryKey),
		mustTestField(t, "content", Text, LexicallyIndexed()),
		mustTestField(t, "embedding", DenseVector, WithDim(8)),
		mustTestField(t, "sparse_embedding", SparseVector),
	}
}

func mustTestField(t *testing.T, name string, kind Kind, opts ...FieldOption) FieldSpec {
	t.Helper()
	f, err := NewField(name, kind, opts...)
	if err != nil {
		t.Fatalf("field %s: %v", name, err)
	}
	return f
}

func validDerivations() []DerivationSpec {
	return []DerivationSpec{
		NewDerivation("content_bm25", []string{"content"}, "sparse_embedding"),
	}
}

func validIndexes() []IndexSpec {
	return []IndexSpec{
		NewIndex("embedding", IndexHNSW, MetricCosine, nil),
		NewIndex("sparse_embedding", IndexSparseInverted, MetricBM25, nil),
	}
}

func TestNew_ValidShape(t *testing.T) {
	s, err := New("docs", validFields(t), validDerivations(), validIndexes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name() != "docs" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.PrimaryKey().Name() != "doc_id" {
		t.Errorf("PrimaryKey() = %q", s.PrimaryKey().Name())
	}
	if s.DenseVector().Name() != "embedding" {
		t.Errorf("DenseVector() = %q", s.DenseVector().Name())
	}
	lex, ok := s.LexicalField()
	if !ok || lex.Name() != "content" {
		t.Errorf("LexicalField() = %q, %v", lex.Name(), ok)
	}
	idx, ok := s.IndexFor("embedding")
	if !ok || idx.Kind() != IndexHNSW {
		t.Errorf("IndexFor(embedding) = %+v, %v", idx, ok)
	}
}

func TestNew_InvariantViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec)
		wantErr string
	}{
		{
			name: "no primary key",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				return validFields(t)[1:], validDerivations(), validIndexes()
			},
			wantErr: "exactly one primary key",
		},
		{
			name: "two dense vectors",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				fields := append(validFields(t), mustTestField(t, "embedding2", DenseVector, WithDim(8)))
				return fields, validDerivations(), validIndexes()
			},
			wantErr: "exactly one dense vector",
		},
		{
			name: "duplicate field",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				fields := append(validFields(t), mustTestField(t, "content", Text))
				return fields, validDerivations(), validIndexes()
			},
			wantErr: "duplicate field",
		},
		{
			name: "sparse vector without derivation",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				return validFields(t), nil, validIndexes()
			},
			wantErr: "exactly one derivation",
		},
		{
			name: "derivation outputs unknown field",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				derivs := []DerivationSpec{NewDerivation("d", []string{"content"}, "nope")}
				return validFields(t), derivs, validIndexes()
			},
			wantErr: "unknown field",
		},
		{
			name: "derivation input not lexically indexed",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				fields := []FieldSpec{
					mustTestField(t, "doc_id", PrimaryKey),
					mustTestField(t, "content", Text), // not lexically indexed
					mustTestField(t, "embedding", DenseVector, WithDim(8)),
					mustTestField(t, "sparse_embedding", SparseVector),
				}
				return fields, validDerivations(), validIndexes()
			},
			wantErr: "lexically indexed",
		},
		{
			name: "dense vector without index",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				return validFields(t), validDerivations(), validIndexes()[1:]
			},
			wantErr: "exactly one index",
		},
		{
			name: "dense vector with sparse index kind",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				indexes := []IndexSpec{
					NewIndex("embedding", IndexSparseInverted, MetricBM25, nil),
					NewIndex("sparse_embedding", IndexSparseInverted, MetricBM25, nil),
				}
				return validFields(t), validDerivations(), indexes
			},
			wantErr: "hnsw index",
		},
		{
			name: "index on non-vector field",
			mutate: func(t *testing.T) ([]FieldSpec, []DerivationSpec, []IndexSpec) {
				indexes := append(validIndexes(), NewIndex("content", IndexHNSW, MetricCosine, nil))
				return validFields(t), validDerivations(), indexes
			},
			wantErr: "non-vector field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, derivs, indexes := tt.mutate(t)
			_, err := New("docs", fields, derivs, indexes)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidSchema) {
				t.Errorf("error = %v, want ErrInvalidSchema", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want invariant %q named", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNew_NameValidation(t *testing.T) {
	for _, name := range []string{"", "has spaces", "has/slash", strings.Repeat("x", 65)} {
		_, err := New(name, validFields(t), validDerivations(), validIndexes())
		if err == nil {
			t.Errorf("expected error for name %q", name)
		}
		if !errors.Is(err, domain.ErrInvalidSchema) {
			t.Errorf("name %q: error = %v, want ErrInvalidSchema", name, err)
		}
	}
}

func TestPayloadFields_ExcludesVectors(t *testing.T) {
	s, err := New("docs", validFields(t), validDerivations(), validIndexes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.PayloadFields()
	want := []string{"doc_id", "content"}
	if len(got) != len(want) {
		t.Fatalf("PayloadFields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PayloadFields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIndexSpec_Param(t *testing.T) {
	idx := NewIndex("embedding", IndexHNSW, MetricCosine, map[string]float64{"m": 32})
	if got := idx.Param("m", 16); got != 32 {
		t.Errorf("Param(m) = %f, want 32", got)
	}
	if got := idx.Param("ef_construction", 200); got != 200 {
		t.Errorf("Param(ef_construction) = %f, want default 200", got)
	}
}
