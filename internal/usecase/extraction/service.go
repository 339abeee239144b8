package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// maxVocabulary caps how many known tag values are fed into the prompt.
const maxVocabulary = 50

// Service pulls structured filters out of a natural-language query with an
// LLM. Extraction is best effort: callers degrade to an unfiltered search
// when it fails.
type Service struct {
	llm    LLM
	colls  Collections
	logger *zap.Logger
}

// New creates an extraction service.
func New(llm LLM, colls Collections, logger *zap.Logger) *Service {
	return &Service{llm: llm, colls: colls, logger: logger}
}

// Extract asks the LLM for filter values implied by the query. The result
// only contains fields that are filterable in the collection's shape. All
// failures come back wrapped in ErrExtraction.
func (s *Service) Extract(ctx context.Context, query, collection string) (map[string]any, error) {
	shape, err := s.colls.Get(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: get collection: %w", domain.ErrExtraction, err)
	}

	filterable := filterableFields(shape)
	if len(filterable) == 0 {
		return map[string]any{}, nil
	}

	system := s.buildSystemPrompt(ctx, shape, filterable)

	raw, err := s.llm.Complete(ctx, system, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	extracted, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	filters := make(map[string]any, len(extracted))
	for k, v := range extracted {
		f, ok := filterable[k]
		if !ok {
			s.logger.Debug("Dropping extracted filter on unknown field", zap.String("field", k))
			continue
		}
		coerced, ok := coerceValue(f, v)
		if !ok {
			s.logger.Debug("Dropping extracted filter with incompatible value",
				zap.String("field", k), zap.Any("value", v))
			continue
		}
		filters[k] = coerced
	}

	return filters, nil
}

// filterableFields returns the tag and numeric fields keyed by name.
func filterableFields(shape schema.CollectionShape) map[string]schema.FieldSpec {
	out := make(map[string]schema.FieldSpec)
	for _, f := range shape.Fields() {
		switch {
		case f.Kind() == schema.Numeric:
			out[f.Name()] = f
		case f.Kind() == schema.Text && !f.IsLexicallyIndexed():
			out[f.Name()] = f
		}
	}
	return out
}

func (s *Service) buildSystemPrompt(
	ctx context.Context, shape schema.CollectionShape, filterable map[string]schema.FieldSpec,
) string {
	var sb strings.Builder
	sb.WriteString("Extract search filters from the user's query.\n")
	sb.WriteString("Respond with a single JSON object and nothing else. ")
	sb.WriteString("Include only filters the query clearly implies; when unsure, omit the field. ")
	sb.WriteString("An empty object is a valid answer.\n\nFilterable fields:\n")

	for _, f := range shape.Fields() {
		spec, ok := filterable[f.Name()]
		if !ok {
			continue
		}
		if spec.Kind() == schema.Numeric {
			fmt.Fprintf(&sb, "- %s (number)\n", f.Name())
			continue
		}
		fmt.Fprintf(&sb, "- %s (string)\n", f.Name())
		if vocab := s.vocabulary(ctx, shape.Name(), f.Name()); len(vocab) > 0 {
			fmt.Fprintf(&sb, "  known values: %s\n", strings.Join(vocab, ", "))
		}
	}

	return sb.String()
}

// vocabulary fetches the stored values of a tag field. Failures only cost
// prompt quality, never the extraction.
func (s *Service) vocabulary(ctx context.Context, collection, field string) []string {
	vals, err := s.colls.DistinctValues(ctx, collection, field)
	if err != nil {
		s.logger.Debug("Tag vocabulary unavailable",
			zap.String("collection", collection),
			zap.String("field", field),
			zap.Error(err))
		return nil
	}
	if len(vals) > maxVocabulary {
		vals = vals[:maxVocabulary]
	}
	return vals
}

// parseResponse decodes the completion into a JSON object, tolerating
// markdown code fences around it.
func parseResponse(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return m, nil
}

// coerceValue aligns an extracted value with the field's kind.
func coerceValue(f schema.FieldSpec, v any) (any, bool) {
	if f.Kind() == schema.Numeric {
		n, ok := v.(float64)
		return n, ok
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, false
	}
	return s, true
}
