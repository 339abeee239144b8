package collection

import (
	"encoding/json"
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// fieldRow is the JSON-serializable representation of a field for HSET.
type fieldRow struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	MaxLength     int    `json:"max_length,omitempty"`
	Dim           int    `json:"dim,omitempty"`
	AutoGenerated bool   `json:"auto_generated,omitempty"`
	Lexical       bool   `json:"lexical,omitempty"`
}

// derivationRow is the JSON-serializable representation of a derivation.
type derivationRow struct {
	Name   string   `json:"name"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

// indexRow is the JSON-serializable representation of a vector index.
type indexRow struct {
	Field  string             `json:"field"`
	Kind   string             `json:"kind"`
	Metric string             `json:"metric"`
	Params map[string]float64 `json:"params,omitempty"`
}

// shapeToHash converts a CollectionShape to a map for HSET.
func shapeToHash(s schema.CollectionShape) (map[string]string, error) {
	fields := make([]fieldRow, len(s.Fields()))
	for i, f := range s.Fields() {
		fields[i] = fieldRow{
			Name:          f.Name(),
			Kind:          string(f.Kind()),
			MaxLength:     f.MaxLength(),
			Dim:           f.Dim(),
			AutoGenerated: f.IsAutoGenerated(),
			Lexical:       f.IsLexicallyIndexed(),
		}
	}
	derivations := make([]derivationRow, len(s.Derivations()))
	for i, d := range s.Derivations() {
		derivations[i] = derivationRow{Name: d.Name(), Inputs: d.Inputs(), Output: d.Output()}
	}
	indexes := make([]indexRow, len(s.Indexes()))
	for i, idx := range s.Indexes() {
		indexes[i] = indexRow{
			Field:  idx.Field(),
			Kind:   string(idx.Kind()),
			Metric: string(idx.Metric()),
			Params: indexParams(idx),
		}
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	derivationsJSON, err := json.Marshal(derivations)
	if err != nil {
		return nil, fmt.Errorf("marshal derivations: %w", err)
	}
	indexesJSON, err := json.Marshal(indexes)
	if err != nil {
		return nil, fmt.Errorf("marshal indexes: %w", err)
	}

	return map[string]string{
		"name":             s.Name(),
		"fields_json":      string(fieldsJSON),
		"derivations_json": string(derivationsJSON),
		"indexes_json":     string(indexesJSON),
	}, nil
}

// shapeFromHash hydrates a CollectionShape from an HGETALL result map.
func shapeFromHash(m map[string]string) (schema.CollectionShape, error) {
	name := m["name"]

	var fieldRows []fieldRow
	if s := m["fields_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &fieldRows); err != nil {
			return schema.CollectionShape{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	var derivationRows []derivationRow
	if s := m["derivations_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &derivationRows); err != nil {
			return schema.CollectionShape{}, fmt.Errorf("unmarshal derivations: %w", err)
		}
	}
	var indexRows []indexRow
	if s := m["indexes_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &indexRows); err != nil {
			return schema.CollectionShape{}, fmt.Errorf("unmarshal indexes: %w", err)
		}
	}

	fields := make([]schema.FieldSpec, len(fieldRows))
	for i, r := range fieldRows {
		fields[i] = schema.ReconstructField(r.Name, schema.Kind(r.Kind), r.MaxLength, r.Dim, r.AutoGenerated, r.Lexical)
	}
	derivations := make([]schema.DerivationSpec, len(derivationRows))
	for i, r := range derivationRows {
		derivations[i] = schema.NewDerivation(r.Name, r.Inputs, r.Output)
	}
	indexes := make([]schema.IndexSpec, len(indexRows))
	for i, r := range indexRows {
		indexes[i] = schema.NewIndex(r.Field, schema.IndexKind(r.Kind), schema.IndexMetric(r.Metric), r.Params)
	}

	return schema.Reconstruct(name, fields, derivations, indexes), nil
}

func indexParams(idx schema.IndexSpec) map[string]float64 {
	// Round-trip the known knobs; unknown params are not preserved.
	params := make(map[string]float64)
	for _, k := range []string{"m", "ef_construction", "k1", "b", "drop_ratio"} {
		if v := idx.Param(k, -1); v >= 0 {
			params[k] = v
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
