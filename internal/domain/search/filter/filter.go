package filter

import (
	"fmt"
	"sort"
)

// MaxPredicates caps the number of conjoined predicates in one expression.
const MaxPredicates = 32

// Predicate is a single equality clause against a stored field. The value is
// either a string (exact match) or a number; exactly one is set.
type Predicate struct {
	field   string
	match   string
	number  float64
	numeric bool
}

// NewMatch creates an exact string match predicate.
func NewMatch(field, match string) (Predicate, error) {
	if field == "" {
		return Predicate{}, fmt.Errorf("filter field is required")
	}
	if match == "" {
		return Predicate{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Predicate{field: field, match: match}, nil
}

// NewNumeric creates a numeric equality predicate.
func NewNumeric(field string, value float64) (Predicate, error) {
	if field == "" {
		return Predicate{}, fmt.Errorf("filter field is required")
	}
	return Predicate{field: field, number: value, numeric: true}, nil
}

// Field returns the filtered field name.
func (p Predicate) Field() string { return p.field }

// Match returns the exact string value.
func (p Predicate) Match() string { return p.match }

// Number returns the numeric value.
func (p Predicate) Number() float64 { return p.number }

// IsNumeric reports whether this is a numeric equality predicate.
func (p Predicate) IsNumeric() bool { return p.numeric }

// Expression is a conjunction of predicates. The zero value matches
// everything (no filtering).
type Expression struct {
	predicates []Predicate
}

// NewExpression validates and creates an Expression.
func NewExpression(predicates []Predicate) (Expression, error) {
	if len(predicates) > MaxPredicates {
		return Expression{}, fmt.Errorf("too many filter predicates (max %d)", MaxPredicates)
	}
	return Expression{predicates: predicates}, nil
}

// Predicates returns the conjoined predicates.
func (e Expression) Predicates() []Predicate { return e.predicates }

// IsEmpty reports whether the expression filters nothing.
func (e Expression) IsEmpty() bool { return len(e.predicates) == 0 }

// BuildFromMap converts a field-to-value map into a conjunctive Expression.
// String values become exact matches, numeric values (any Go number or a
// json.Number-style float) become numeric equality. An empty or nil map
// yields the empty expression. Predicates are ordered by field name so the
// rendered form is deterministic; callers must not depend on the textual
// form beyond its semantics.
//
// Both the explicit filter path and the extracted filter path go through
// here, which is what makes the escaping guarantees hold for both.
func BuildFromMap(values map[string]any) (Expression, error) {
	if len(values) == 0 {
		return Expression{}, nil
	}

	fields := make([]string, 0, len(values))
	for k := range values {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	predicates := make([]Predicate, 0, len(fields))
	for _, f := range fields {
		p, err := fromValue(f, values[f])
		if err != nil {
			return Expression{}, err
		}
		predicates = append(predicates, p)
	}
	return NewExpression(predicates)
}

func fromValue(field string, v any) (Predicate, error) {
	switch val := v.(type) {
	case string:
		return NewMatch(field, val)
	case float64:
		return NewNumeric(field, val)
	case float32:
		return NewNumeric(field, float64(val))
	case int:
		return NewNumeric(field, float64(val))
	case int32:
		return NewNumeric(field, float64(val))
	case int64:
		return NewNumeric(field, float64(val))
	case bool:
		if val {
			return NewMatch(field, "true")
		}
		return NewMatch(field, "false")
	default:
		return Predicate{}, fmt.Errorf("unsupported filter value for field %q (%T)", field, v)
	}
}
