package collection

import (
	"context"
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// Service manages collection lifecycle and introspection.
type Service struct {
	repo      Repository
	vectorDim int
}

// Stats describes one collection as seen by the live index.
type Stats struct {
	Name   string
	Rows   int
	Fields []string
}

// New creates a collection service.
func New(repo Repository, vectorDim int) *Service {
	return &Service{repo: repo, vectorDim: vectorDim}
}

// Ensure resolves the schema preset and makes the collection exist. The
// returned flag reports whether it was created on this call.
func (s *Service) Ensure(ctx context.Context, name, schemaType string) (schema.CollectionShape, bool, error) {
	shape, err := schema.Resolve(schemaType, name, s.vectorDim)
	if err != nil {
		return schema.CollectionShape{}, false, err
	}

	created, err := s.repo.Ensure(ctx, shape)
	if err != nil {
		return schema.CollectionShape{}, false, fmt.Errorf("ensure collection: %w", err)
	}

	return shape, created, nil
}

// Get retrieves a stored collection shape by name.
func (s *Service) Get(ctx context.Context, name string) (schema.CollectionShape, error) {
	shape, err := s.repo.Get(ctx, name)
	if err != nil {
		return schema.CollectionShape{}, fmt.Errorf("get collection: %w", err)
	}
	return shape, nil
}

// List returns all stored collection shapes.
func (s *Service) List(ctx context.Context) ([]schema.CollectionShape, error) {
	shapes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return shapes, nil
}

// Drop removes a collection and its index.
func (s *Service) Drop(ctx context.Context, name string) error {
	if err := s.repo.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// Stats reports the row count and live field list of one collection.
func (s *Service) Stats(ctx context.Context, name string) (Stats, error) {
	rows, err := s.repo.RowCount(ctx, name)
	if err != nil {
		return Stats{}, fmt.Errorf("row count: %w", err)
	}
	fields, err := s.repo.LiveFields(ctx, name)
	if err != nil {
		return Stats{}, fmt.Errorf("live fields: %w", err)
	}
	return Stats{Name: name, Rows: rows, Fields: fields}, nil
}

// DistinctValues returns the stored values of a tag field. The field must be
// a non-lexical text field of the collection.
func (s *Service) DistinctValues(ctx context.Context, name, field string) ([]string, error) {
	shape, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	f, ok := shape.FieldByName(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, field)
	}
	if f.Kind() != schema.Text || f.IsLexicallyIndexed() {
		return nil, fmt.Errorf("%w: field %q is not a tag field", domain.ErrInvalidQuery, field)
	}

	vals, err := s.repo.DistinctValues(ctx, name, field)
	if err != nil {
		return nil, fmt.Errorf("distinct values: %w", err)
	}
	return vals, nil
}
