// Package vectorstore is the persistent vector store boundary: upsert and
// query over named vector spaces ("dense", "sparse") with exact-match payload
// filters. Two backends implement it, a Qdrant REST client and a Postgres
// pgvector/tsvector store, so deployments can pick either without touching
// the retrieval engine.
package vectorstore

import (
	"context"
	"errors"
)

// Named vector spaces. Every collection carries both.
const (
	SpaceDense  = "dense"
	SpaceSparse = "sparse"
)

// ErrNotConnected indicates the store was used before Connect succeeded.
var ErrNotConnected = errors.New("vectorstore: not connected")

// SparseVector is a keyword-space vector in coordinate form: parallel index
// and weight slices, indices strictly ascending.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Point is one upsert unit: a record's vectors plus its payload.
type Point struct {
	ID     string
	Dense  []float32
	Sparse SparseVector

	// SparseText is the raw keyword text; text-search backends (Postgres
	// tsvector) index it instead of the hashed sparse vector.
	SparseText string

	Payload map[string]any
}

// Hit is one ranked query result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// QueryRequest describes a single-space search. Exactly one of the vector
// fields is consulted, selected by Space; Text carries the raw query for
// text-search sparse backends.
type QueryRequest struct {
	Space  string
	Dense  []float32
	Sparse *SparseVector
	Text   string
	Limit  int

	// Filter is an exact-match conjunction over payload fields
	// (e.g. {"species": "dog"}).
	Filter map[string]string
}

// Store is the vector store boundary.
type Store interface {
	// EnsureCollection creates the collection (dense dimension dim) if it
	// does not already exist.
	EnsureCollection(ctx context.Context, dim int) error

	// Upsert writes points, replacing any existing point with the same ID.
	Upsert(ctx context.Context, points []Point) error

	// Query runs one ranked search in the requested space.
	Query(ctx context.Context, req QueryRequest) ([]Hit, error)

	// Close releases the backend connection.
	Close() error
}
