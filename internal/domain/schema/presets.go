package schema

import (
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain"
)

// Preset schema type identifiers.
const (
	TypeDocument     = "document"
	TypeAnnualReport = "annual_report"
)

// BM25 and HNSW defaults shared by the presets.
const (
	defaultBM25K1        = 1.2
	defaultBM25B         = 0.75
	defaultBM25DropRatio = 0.2
	defaultHNSWM         = 16
	defaultHNSWEF        = 200
)

func mustField(name string, kind Kind, opts ...FieldOption) FieldSpec {
	f, err := NewField(name, kind, opts...)
	if err != nil {
		panic(fmt.Sprintf("preset field %s: %v", name, err))
	}
	return f
}

func presetIndexes(dim int) []IndexSpec {
	return []IndexSpec{
		NewIndex("embedding", IndexHNSW, MetricCosine, map[string]float64{
			"m": defaultHNSWM, "ef_construction": defaultHNSWEF,
		}),
		NewIndex("sparse_embedding", IndexSparseInverted, MetricBM25, map[string]float64{
			"k1": defaultBM25K1, "b": defaultBM25B, "drop_ratio": defaultBM25DropRatio,
		}),
	}
}

// Document is the general-purpose preset: free text with JSON metadata and a
// source tag, searchable both semantically and lexically.
func Document(name string, dim int) (CollectionShape, error) {
	fields := []FieldSpec{
		mustField("doc_id", PrimaryKey, WithMaxLength(100), AutoGenerated()),
		mustField("content", Text, WithMaxLength(10000), LexicallyIndexed()),
		mustField("metadata", Text, WithMaxLength(2000)),
		mustField("source", Text, WithMaxLength(500)),
		mustField("created_at", Text, WithMaxLength(50)),
		mustField("embedding", DenseVector, WithDim(dim)),
		mustField("sparse_embedding", SparseVector),
	}
	derivations := []DerivationSpec{
		NewDerivation("content_bm25", []string{"content"}, "sparse_embedding"),
	}
	return New(name, fields, derivations, presetIndexes(dim))
}

// AnnualReport is the financial filings preset: report chunks tagged with
// company, year and chunk position.
func AnnualReport(name string, dim int) (CollectionShape, error) {
	fields := []FieldSpec{
		mustField("chunk_id", PrimaryKey, WithMaxLength(100), AutoGenerated()),
		mustField("session_name", Text, WithMaxLength(100)),
		mustField("company", Text, WithMaxLength(100)),
		// year is stored as text, not a number: filings tag chunks with the
		// report year as a string and filter it by exact match.
		mustField("year", Text, WithMaxLength(10)),
		mustField("chunk_text", Text, WithMaxLength(10000), LexicallyIndexed()),
		mustField("chunk_index", Numeric),
		mustField("chunk_length", Numeric),
		mustField("embedding", DenseVector, WithDim(dim)),
		mustField("created_at", Text, WithMaxLength(50)),
		mustField("sparse_embedding", SparseVector),
	}
	derivations := []DerivationSpec{
		NewDerivation("chunk_text_bm25", []string{"chunk_text"}, "sparse_embedding"),
	}
	return New(name, fields, derivations, presetIndexes(dim))
}

// Resolve maps a schema type identifier to its preset shape.
func Resolve(schemaType, name string, dim int) (CollectionShape, error) {
	switch schemaType {
	case TypeDocument, "":
		return Document(name, dim)
	case TypeAnnualReport:
		return AnnualReport(name, dim)
	default:
		return CollectionShape{}, fmt.Errorf("%w: unknown schema type %q", domain.ErrInvalidSchema, schemaType)
	}
}
