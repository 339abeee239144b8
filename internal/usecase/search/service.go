package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
	"github.com/meridian-data/searchbridge/internal/domain/search/request"
	"github.com/meridian-data/searchbridge/internal/domain/search/result"
)

// Service runs hybrid retrieval: a dense KNN leg and a lexical BM25 leg in
// parallel, fused by reciprocal rank.
type Service struct {
	repo  Repository
	colls CollectionReader
	embed Embedder
}

// New creates a search service.
func New(repo Repository, colls CollectionReader, embed Embedder) *Service {
	return &Service{repo: repo, colls: colls, embed: embed}
}

// Search executes a hybrid search. Collections without a lexical field fall
// back to the dense leg alone.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	shape, err := s.colls.Get(ctx, req.Collection())
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	if err = validateFilters(req.Filters(), shape); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	returnFields := s.projection(ctx, shape)

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	var dense, lexical []result.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dense, err = s.repo.Dense(
			gctx, req.Collection(), embResult.Embedding, req.Filters(), req.TopK(), returnFields,
		)
		if err != nil {
			return fmt.Errorf("dense leg: %w", err)
		}
		return nil
	})
	if lexField, ok := shape.LexicalField(); ok {
		g.Go(func() error {
			var err error
			lexical, err = s.repo.Lexical(
				gctx, req.Collection(), lexField.Name(), req.Query(), req.Filters(), req.TopK(), returnFields,
			)
			if err != nil {
				return fmt.Errorf("lexical leg: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuseRRF(dense, lexical, req.TopK())
	decodeMetadata(fused, shape)
	return fused, nil
}

// projection returns the field list to request from the index. The live
// index attributes win; when the index cannot be described the stored shape's
// payload fields stand in.
func (s *Service) projection(ctx context.Context, shape schema.CollectionShape) []string {
	fields, err := s.colls.LiveFields(ctx, shape.Name())
	if err != nil || len(fields) == 0 {
		return shape.PayloadFields()
	}
	return fields
}

// decodeMetadata expands JSON-object metadata strings in place for every
// text field conventionally named "metadata".
func decodeMetadata(results []result.Result, shape schema.CollectionShape) {
	f, ok := shape.FieldByName("metadata")
	if !ok || f.Kind() != schema.Text {
		return
	}
	for i := range results {
		results[i].DecodeMetadata("metadata")
	}
}

// validateFilters ensures every predicate targets an existing field of a
// compatible kind: string matches need a tag-indexed text field, numeric
// equality needs a numeric field.
func validateFilters(expr filter.Expression, shape schema.CollectionShape) error {
	if expr.IsEmpty() {
		return nil
	}
	for _, p := range expr.Predicates() {
		f, ok := shape.FieldByName(p.Field())
		if !ok {
			return fmt.Errorf("unknown filter field %q", p.Field())
		}
		switch {
		case p.IsNumeric() && f.Kind() != schema.Numeric:
			return fmt.Errorf("numeric filter on non-numeric field %q", p.Field())
		case !p.IsNumeric() && (f.Kind() != schema.Text || f.IsLexicallyIndexed()):
			return fmt.Errorf("match filter on non-tag field %q", p.Field())
		}
	}
	return nil
}
