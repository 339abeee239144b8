package result

import "encoding/json"

// Result is a single fused search hit. Fields holds the stored payload
// projected onto the collection's live non-vector fields.
type Result struct {
	id     string
	score  float64
	fields map[string]any
}

// New creates a search result.
func New(id string, score float64, fields map[string]any) Result {
	return Result{id: id, score: score, fields: fields}
}

// ID returns the record identifier.
func (r *Result) ID() string { return r.id }

// Score returns the fused relevance score.
func (r *Result) Score() float64 { return r.score }

// Fields returns the projected payload.
func (r *Result) Fields() map[string]any { return r.fields }

// WithScore returns a copy carrying a different score.
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}

// DecodeMetadata replaces a JSON-object string stored under key with its
// decoded map. Anything that does not parse as a JSON object is left as the
// raw string; stored metadata is not trusted to be well-formed.
func (r *Result) DecodeMetadata(key string) {
	raw, ok := r.fields[key].(string)
	if !ok || raw == "" {
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return
	}
	r.fields[key] = decoded
}
