package request

import (
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 500
)

// Request is a validated search query against one collection.
type Request struct {
	query      string
	collection string
	schemaType string
	filters    filter.Expression
	topK       int
}

// New validates and normalizes search parameters.
// topK 0 means unset and becomes 10; negative values are rejected; the cap is
// 500. Collection must already be resolved by the caller (the default
// collection substitution happens at the tool layer).
func New(query, collection, schemaType string, filters filter.Expression, topK int) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if collection == "" {
		return Request{}, fmt.Errorf("%w: collection is required", domain.ErrInvalidQuery)
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidQuery, topK)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{
		query:      query,
		collection: collection,
		schemaType: schemaType,
		filters:    filters,
		topK:       topK,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Collection returns the target collection name.
func (r *Request) Collection() string { return r.collection }

// SchemaType returns the schema preset the collection was created from.
func (r *Request) SchemaType() string { return r.schemaType }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// TopK returns the number of results to return after fusion.
func (r *Request) TopK() int { return r.topK }
