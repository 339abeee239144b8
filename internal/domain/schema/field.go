package schema

import "fmt"

// Kind is the logical role of a field within a collection shape.
type Kind string

// Field kind constants.
const (
	// PrimaryKey identifies the record. At most one per shape.
	PrimaryKey Kind = "primary_key"
	// Text is a stored string scalar, filterable by exact match.
	Text Kind = "text"
	// Numeric is a stored numeric scalar, filterable by equality and range.
	Numeric Kind = "numeric"
	// DenseVector holds the embedding used for KNN search.
	DenseVector Kind = "dense_vector"
	// SparseVector is a derived lexical representation. It has no stored
	// payload; the backend computes it from a lexically indexed text field.
	SparseVector Kind = "sparse_vector"
)

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	switch k {
	case PrimaryKey, Text, Numeric, DenseVector, SparseVector:
		return true
	}
	return false
}

var reservedFieldNames = map[string]bool{
	"id": true, "score": true, "vector": true,
}

// FieldSpec is an immutable value object describing one field of a shape.
type FieldSpec struct {
	name             string
	kind             Kind
	maxLength        int
	dim              int
	autoGenerated    bool
	lexicallyIndexed bool
}

// FieldOption customizes a FieldSpec at construction.
type FieldOption func(*FieldSpec)

// WithMaxLength caps the stored length of a text or primary key field.
func WithMaxLength(n int) FieldOption {
	return func(f *FieldSpec) { f.maxLength = n }
}

// WithDim sets the vector dimension of a dense vector field.
func WithDim(d int) FieldOption {
	return func(f *FieldSpec) { f.dim = d }
}

// AutoGenerated marks a primary key as backend-generated on insert.
func AutoGenerated() FieldOption {
	return func(f *FieldSpec) { f.autoGenerated = true }
}

// LexicallyIndexed marks a text field as the input of full-text scoring.
func LexicallyIndexed() FieldOption {
	return func(f *FieldSpec) { f.lexicallyIndexed = true }
}

// NewField validates and creates a FieldSpec.
// Name must be non-empty, max 64 chars, and not reserved.
func NewField(name string, kind Kind, opts ...FieldOption) (FieldSpec, error) {
	if name == "" {
		return FieldSpec{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return FieldSpec{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if reservedFieldNames[name] {
		return FieldSpec{}, fmt.Errorf("field name %q is reserved", name)
	}
	if !kind.IsValid() {
		return FieldSpec{}, fmt.Errorf("invalid field kind %q for %q", kind, name)
	}

	f := FieldSpec{name: name, kind: kind}
	for _, opt := range opts {
		opt(&f)
	}

	if f.autoGenerated && kind != PrimaryKey {
		return FieldSpec{}, fmt.Errorf("field %q: only primary keys can be auto-generated", name)
	}
	if f.lexicallyIndexed && kind != Text {
		return FieldSpec{}, fmt.Errorf("field %q: only text fields can be lexically indexed", name)
	}
	if kind == DenseVector && f.dim <= 0 {
		return FieldSpec{}, fmt.Errorf("field %q: dense vector dimension must be positive", name)
	}
	if kind != DenseVector && f.dim != 0 {
		return FieldSpec{}, fmt.Errorf("field %q: dimension is only valid on dense vectors", name)
	}
	return f, nil
}

// ReconstructField creates a FieldSpec without validation (storage hydration).
func ReconstructField(name string, kind Kind, maxLength, dim int, autoGenerated, lexicallyIndexed bool) FieldSpec {
	return FieldSpec{
		name:             name,
		kind:             kind,
		maxLength:        maxLength,
		dim:              dim,
		autoGenerated:    autoGenerated,
		lexicallyIndexed: lexicallyIndexed,
	}
}

// Name returns the field name.
func (f FieldSpec) Name() string { return f.name }

// Kind returns the field's logical role.
func (f FieldSpec) Kind() Kind { return f.kind }

// MaxLength returns the stored length cap (0 means unbounded).
func (f FieldSpec) MaxLength() int { return f.maxLength }

// Dim returns the vector dimension (dense vectors only).
func (f FieldSpec) Dim() int { return f.dim }

// IsAutoGenerated reports whether the backend assigns this key on insert.
func (f FieldSpec) IsAutoGenerated() bool { return f.autoGenerated }

// IsLexicallyIndexed reports whether the field feeds full-text scoring.
func (f FieldSpec) IsLexicallyIndexed() bool { return f.lexicallyIndexed }

// IsVector reports whether the field holds a vector representation.
func (f FieldSpec) IsVector() bool {
	return f.kind == DenseVector || f.kind == SparseVector
}
