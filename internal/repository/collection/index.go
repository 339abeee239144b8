package collection

import (
	"fmt"

	"github.com/meridian-data/searchbridge/internal/db"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// buildIndex creates an FT IndexDefinition from a collection shape.
//
// Mapping: text -> TAG (exact-match filterable), numeric -> NUMERIC,
// lexically indexed text -> TEXT (the backend derives BM25 scoring from it,
// which is how the shape's sparse vector is realized), dense vector ->
// VECTOR HNSW aliased as "vector". The primary key lives in the record key
// and gets no attribute of its own.
func buildIndex(shape schema.CollectionShape) (*db.IndexDefinition, error) {
	name := shape.Name()
	b := db.BuildIndex(indexName(name)).Prefix(collectionPrefix(name))

	for _, f := range shape.Fields() {
		switch f.Kind() {
		case schema.PrimaryKey, schema.SparseVector:
			// key-encoded / derived, nothing to index directly
		case schema.Text:
			if f.IsLexicallyIndexed() {
				b.Text(f.Name())
			} else {
				b.Tag(f.Name())
			}
		case schema.Numeric:
			b.Numeric(f.Name())
		case schema.DenseVector:
			idx, ok := shape.IndexFor(f.Name())
			if !ok {
				return nil, fmt.Errorf("dense vector %q has no index spec", f.Name())
			}
			b.VectorHNSW(
				f.Name(), "vector", f.Dim(), db.DistanceCosine,
				int(idx.Param("m", 16)), int(idx.Param("ef_construction", 200)),
			)
		default:
			return nil, fmt.Errorf("unknown field kind: %s", f.Kind())
		}
	}

	return b.Build()
}
