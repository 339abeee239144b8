package schema

import (
	"regexp"

	"github.com/meridian-data/searchbridge/internal/domain"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DerivationSpec declares that the backend derives one field from others at
// index time. The only supported function is lexical (BM25) derivation of a
// sparse vector from a text field.
type DerivationSpec struct {
	name   string
	inputs []string
	output string
}

// NewDerivation creates a derivation. Input and output references are
// validated against the shape's fields in New.
func NewDerivation(name string, inputs []string, output string) DerivationSpec {
	return DerivationSpec{name: name, inputs: inputs, output: output}
}

// Name returns the derivation name.
func (d DerivationSpec) Name() string { return d.name }

// Inputs returns the names of the source fields.
func (d DerivationSpec) Inputs() []string { return d.inputs }

// Output returns the name of the derived field.
func (d DerivationSpec) Output() string { return d.output }

// IndexKind selects the index structure for a vector field.
type IndexKind string

// IndexMetric selects the similarity metric for a vector index.
type IndexMetric string

// Index kinds and metrics.
const (
	IndexHNSW           IndexKind = "hnsw"
	IndexSparseInverted IndexKind = "sparse_inverted"

	MetricCosine IndexMetric = "cosine"
	MetricBM25   IndexMetric = "bm25"
)

// IndexSpec binds an index structure and metric to a vector field.
type IndexSpec struct {
	field  string
	kind   IndexKind
	metric IndexMetric
	params map[string]float64
}

// NewIndex creates an index spec. Params carry structure-specific knobs
// (hnsw m / ef_construction, bm25 k1 / b / drop_ratio).
func NewIndex(field string, kind IndexKind, metric IndexMetric, params map[string]float64) IndexSpec {
	return IndexSpec{field: field, kind: kind, metric: metric, params: params}
}

// Field returns the indexed field name.
func (i IndexSpec) Field() string { return i.field }

// Kind returns the index structure.
func (i IndexSpec) Kind() IndexKind { return i.kind }

// Metric returns the similarity metric.
func (i IndexSpec) Metric() IndexMetric { return i.metric }

// Param returns a named knob, or def when absent.
func (i IndexSpec) Param(name string, def float64) float64 {
	if v, ok := i.params[name]; ok {
		return v
	}
	return def
}

// CollectionShape is the full definition of a collection: its fields, the
// derivations the backend applies, and the vector indexes (immutable value
// object).
type CollectionShape struct {
	name        string
	fields      []FieldSpec
	derivations []DerivationSpec
	indexes     []IndexSpec
}

func validateName(name string) error {
	if name == "" {
		return domain.NewSchemaError("collection name is required")
	}
	if len(name) > 64 {
		return domain.NewSchemaError("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return domain.NewSchemaError("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a CollectionShape.
//
// Invariants: exactly one primary key; exactly one dense vector; at most one
// sparse vector, which must be the output of exactly one derivation reading a
// lexically indexed text field; every vector field carries exactly one index;
// field names are unique (max 64 fields).
func New(name string, fields []FieldSpec, derivations []DerivationSpec, indexes []IndexSpec) (CollectionShape, error) {
	if err := validateName(name); err != nil {
		return CollectionShape{}, err
	}
	if len(fields) > 64 {
		return CollectionShape{}, domain.NewSchemaError("too many fields (max 64)")
	}

	byName := make(map[string]FieldSpec, len(fields))
	var primaries, dense, sparse int
	for _, f := range fields {
		if _, dup := byName[f.Name()]; dup {
			return CollectionShape{}, domain.NewSchemaError("duplicate field name: %s", f.Name())
		}
		byName[f.Name()] = f
		switch f.Kind() {
		case PrimaryKey:
			primaries++
		case DenseVector:
			dense++
		case SparseVector:
			sparse++
		}
	}
	if primaries != 1 {
		return CollectionShape{}, domain.NewSchemaError("exactly one primary key required, got %d", primaries)
	}
	if dense != 1 {
		return CollectionShape{}, domain.NewSchemaError("exactly one dense vector required, got %d", dense)
	}
	if sparse > 1 {
		return CollectionShape{}, domain.NewSchemaError("at most one sparse vector allowed, got %d", sparse)
	}

	derivedInto := make(map[string]int, len(derivations))
	for _, d := range derivations {
		out, ok := byName[d.Output()]
		if !ok {
			return CollectionShape{}, domain.NewSchemaError("derivation %q outputs unknown field %q", d.Name(), d.Output())
		}
		if out.Kind() != SparseVector {
			return CollectionShape{}, domain.NewSchemaError("derivation %q must output a sparse vector, %q is %s", d.Name(), d.Output(), out.Kind())
		}
		if len(d.Inputs()) != 1 {
			return CollectionShape{}, domain.NewSchemaError("derivation %q must read exactly one field", d.Name())
		}
		in, ok := byName[d.Inputs()[0]]
		if !ok {
			return CollectionShape{}, domain.NewSchemaError("derivation %q reads unknown field %q", d.Name(), d.Inputs()[0])
		}
		if !in.IsLexicallyIndexed() {
			return CollectionShape{}, domain.NewSchemaError("derivation %q input %q must be lexically indexed text", d.Name(), in.Name())
		}
		derivedInto[d.Output()]++
	}
	for _, f := range fields {
		if f.Kind() == SparseVector && derivedInto[f.Name()] != 1 {
			return CollectionShape{}, domain.NewSchemaError("sparse vector %q needs exactly one derivation, got %d", f.Name(), derivedInto[f.Name()])
		}
	}

	indexed := make(map[string]int, len(indexes))
	for _, idx := range indexes {
		f, ok := byName[idx.Field()]
		if !ok {
			return CollectionShape{}, domain.NewSchemaError("index on unknown field %q", idx.Field())
		}
		if !f.IsVector() {
			return CollectionShape{}, domain.NewSchemaError("index on non-vector field %q", idx.Field())
		}
		switch {
		case f.Kind() == DenseVector && idx.Kind() != IndexHNSW:
			return CollectionShape{}, domain.NewSchemaError("dense vector %q requires an hnsw index", idx.Field())
		case f.Kind() == SparseVector && idx.Kind() != IndexSparseInverted:
			return CollectionShape{}, domain.NewSchemaError("sparse vector %q requires a sparse inverted index", idx.Field())
		}
		indexed[idx.Field()]++
	}
	for _, f := range fields {
		if f.IsVector() && indexed[f.Name()] != 1 {
			return CollectionShape{}, domain.NewSchemaError("vector field %q needs exactly one index, got %d", f.Name(), indexed[f.Name()])
		}
	}

	return CollectionShape{name: name, fields: fields, derivations: derivations, indexes: indexes}, nil
}

// Reconstruct creates a CollectionShape without validation (storage hydration).
func Reconstruct(name string, fields []FieldSpec, derivations []DerivationSpec, indexes []IndexSpec) CollectionShape {
	return CollectionShape{name: name, fields: fields, derivations: derivations, indexes: indexes}
}

// Name returns the collection name.
func (s CollectionShape) Name() string { return s.name }

// Fields returns the field definitions.
func (s CollectionShape) Fields() []FieldSpec { return s.fields }

// Derivations returns the index-time derivations.
func (s CollectionShape) Derivations() []DerivationSpec { return s.derivations }

// Indexes returns the vector index specs.
func (s CollectionShape) Indexes() []IndexSpec { return s.indexes }

// FieldByName looks up a field by name.
func (s CollectionShape) FieldByName(name string) (FieldSpec, bool) {
	for _, f := range s.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// PrimaryKey returns the shape's primary key field.
func (s CollectionShape) PrimaryKey() FieldSpec {
	for _, f := range s.fields {
		if f.Kind() == PrimaryKey {
			return f
		}
	}
	return FieldSpec{}
}

// DenseVector returns the shape's dense vector field.
func (s CollectionShape) DenseVector() FieldSpec {
	for _, f := range s.fields {
		if f.Kind() == DenseVector {
			return f
		}
	}
	return FieldSpec{}
}

// LexicalField returns the text field feeding the sparse derivation, if any.
func (s CollectionShape) LexicalField() (FieldSpec, bool) {
	for _, f := range s.fields {
		if f.IsLexicallyIndexed() {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// IndexFor returns the index bound to a vector field.
func (s CollectionShape) IndexFor(field string) (IndexSpec, bool) {
	for _, idx := range s.indexes {
		if idx.Field() == field {
			return idx, true
		}
	}
	return IndexSpec{}, false
}

// PayloadFields returns the fields that carry stored, returnable values:
// everything except vectors. This is the projection list a search should
// request when the live index cannot be consulted.
func (s CollectionShape) PayloadFields() []string {
	out := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if !f.IsVector() {
			out = append(out, f.Name())
		}
	}
	return out
}
