package record

import "fmt"

// MaxValueSize is the maximum size of a single stored text value in bytes.
const MaxValueSize = 163840 // 160KB

// Record is one ingestion row: scalar values keyed by field name plus the
// dense vector (immutable value object). Shape conformance is validated in
// the service layer, which knows the target collection.
type Record struct {
	id     string
	values map[string]any
	vector []float32
}

// New validates and creates a Record. ID may be empty when the target
// shape's primary key is auto-generated.
func New(id string, values map[string]any, vector []float32) (Record, error) {
	if len(id) > 256 {
		return Record{}, fmt.Errorf("record ID too long (max 256)")
	}
	if len(values) == 0 {
		return Record{}, fmt.Errorf("record has no values")
	}
	for k, v := range values {
		if s, ok := v.(string); ok && len(s) > MaxValueSize {
			return Record{}, fmt.Errorf("value for %q too large (max %d bytes)", k, MaxValueSize)
		}
	}
	return Record{id: id, values: cloneValues(values), vector: vector}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id string, values map[string]any, vector []float32) Record {
	return Record{id: id, values: values, vector: vector}
}

// ID returns the record identifier (empty when backend-assigned).
func (r *Record) ID() string { return r.id }

// Values returns the scalar payload keyed by field name.
func (r *Record) Values() map[string]any { return r.values }

// Vector returns the dense embedding vector (nil when not yet embedded).
func (r *Record) Vector() []float32 { return r.vector }

// Value returns one scalar payload value.
func (r *Record) Value(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// WithID returns a copy carrying the given identifier.
func (r Record) WithID(id string) Record {
	r.id = id
	return r
}

// WithVector returns a copy carrying the given vector.
func (r Record) WithVector(v []float32) Record {
	r.vector = v
	return r
}

func cloneValues(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
