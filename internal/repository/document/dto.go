package document

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/record"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// hashFromRecord flattens a record into hash fields following the shape:
// scalars under their field names, the dense vector as a little-endian binary
// blob under the vector field's name. The sparse vector is derived by the
// index and never stored. Values for unknown fields are rejected.
func hashFromRecord(shape schema.CollectionShape, id string, rec record.Record) (map[string]string, error) {
	m := make(map[string]string, len(rec.Values())+2)

	for k, v := range rec.Values() {
		f, ok := shape.FieldByName(k)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidSchema, k)
		}
		s, err := scalarToString(f, v)
		if err != nil {
			return nil, err
		}
		m[k] = s
	}

	m[shape.PrimaryKey().Name()] = id
	m[shape.DenseVector().Name()] = vectorToBytes(rec.Vector())

	return m, nil
}

// recordFromHash hydrates a record from an HGETALL result using the shape to
// recover scalar types.
func recordFromHash(shape schema.CollectionShape, id string, m map[string]string) record.Record {
	values := make(map[string]any, len(m))
	var vector []float32

	for k, v := range m {
		f, ok := shape.FieldByName(k)
		if !ok {
			continue
		}
		switch f.Kind() {
		case schema.PrimaryKey, schema.SparseVector:
		case schema.DenseVector:
			vector = bytesToVector(v)
		case schema.Numeric:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				values[k] = n
			}
		default:
			values[k] = v
		}
	}

	return record.Reconstruct(id, values, vector)
}

func scalarToString(f schema.FieldSpec, v any) (string, error) {
	switch f.Kind() {
	case schema.Text, schema.PrimaryKey:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: field %q expects a string, got %T", domain.ErrInvalidSchema, f.Name(), v)
		}
		return s, nil
	case schema.Numeric:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(n), 'f', -1, 64), nil
		case int:
			return strconv.Itoa(n), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		default:
			return "", fmt.Errorf("%w: field %q expects a number, got %T", domain.ErrInvalidSchema, f.Name(), v)
		}
	default:
		return "", fmt.Errorf("%w: field %q (%s) does not take a scalar value", domain.ErrInvalidSchema, f.Name(), f.Kind())
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
