package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid collection shape definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidQuery signals a malformed or unsatisfiable search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrBackend signals a storage or search backend failure.
	ErrBackend = errors.New("backend error")
	// ErrExtraction signals a filter extraction failure. Callers degrade to
	// an unfiltered search instead of propagating it.
	ErrExtraction = errors.New("filter extraction failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// SchemaError wraps ErrInvalidSchema with the violated invariant.
type SchemaError struct {
	Invariant string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidSchema.Error(), e.Invariant)
}

func (e *SchemaError) Unwrap() error { return ErrInvalidSchema }

// NewSchemaError creates a schema validation error naming the violated invariant.
func NewSchemaError(format string, args ...any) error {
	return &SchemaError{Invariant: fmt.Sprintf(format, args...)}
}
