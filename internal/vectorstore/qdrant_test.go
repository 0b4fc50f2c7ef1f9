package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// qdrantFake records requests and serves canned JSON per path.
type qdrantFake struct {
	t        *testing.T
	requests []recordedRequest
	exists   bool
	hits     []map[string]any
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
	APIKey string
}

func (f *qdrantFake) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			APIKey: r.Header.Get("api-key"),
		}
		if r.Body != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.Body = body
			}
		}
		f.requests = append(f.requests, rec)

		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"exists": f.exists},
			})
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"points": f.hits},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"result": true})
		}
	}
}

func newQdrantFake(t *testing.T) (*qdrantFake, *QdrantStore) {
	t.Helper()
	fake := &qdrantFake{t: t}
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)
	store := NewQdrantStore(QdrantConfig{
		URL:        ts.URL,
		APIKey:     "qdrant-key",
		Collection: "records",
	})
	return fake, store
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	fake, store := newQdrantFake(t)
	fake.exists = false

	require.NoError(t, store.EnsureCollection(context.Background(), 1536))

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/collections/records/exists", fake.requests[0].Path)
	assert.Equal(t, "qdrant-key", fake.requests[0].APIKey)

	create := fake.requests[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/records", create.Path)

	dense := create.Body["vectors"].(map[string]any)[SpaceDense].(map[string]any)
	assert.Equal(t, float64(1536), dense["size"])
	assert.Equal(t, "Cosine", dense["distance"])
	assert.Contains(t, create.Body["sparse_vectors"], SpaceSparse)
}

func TestEnsureCollectionSkipsWhenPresent(t *testing.T) {
	fake, store := newQdrantFake(t)
	fake.exists = true

	require.NoError(t, store.EnsureCollection(context.Background(), 1536))
	assert.Len(t, fake.requests, 1)
}

func TestUpsertSendsNamedVectors(t *testing.T) {
	fake, store := newQdrantFake(t)

	err := store.Upsert(context.Background(), []Point{
		{
			ID:      "42",
			Dense:   []float32{0.1, 0.2},
			Sparse:  SparseVector{Indices: []uint32{3, 9}, Values: []float32{1, 2}},
			Payload: map[string]any{"species": "dog"},
		},
	})
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/records/points", req.Path)

	points := req.Body["points"].([]any)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)
	// Numeric IDs go over the wire as numbers.
	assert.Equal(t, float64(42), point["id"])

	vectors := point["vector"].(map[string]any)
	assert.Contains(t, vectors, SpaceDense)
	sparse := vectors[SpaceSparse].(map[string]any)
	assert.Equal(t, []any{float64(3), float64(9)}, sparse["indices"])

	assert.Equal(t, "dog", point["payload"].(map[string]any)["species"])
}

func TestUpsertEmptySkipsCall(t *testing.T) {
	fake, store := newQdrantFake(t)
	require.NoError(t, store.Upsert(context.Background(), nil))
	assert.Empty(t, fake.requests)
}

func TestQueryDense(t *testing.T) {
	fake, store := newQdrantFake(t)
	fake.hits = []map[string]any{
		{"id": 7, "score": 0.91, "payload": map[string]any{"species": "dog"}},
		{"id": "b1e0c0de-0000-0000-0000-000000000000", "score": 0.55},
	}

	hits, err := store.Query(context.Background(), QueryRequest{
		Space:  SpaceDense,
		Dense:  []float32{0.5, 0.5},
		Limit:  10,
		Filter: map[string]string{"species": "dog"},
	})
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	body := fake.requests[0].Body
	assert.Equal(t, SpaceDense, body["using"])
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, true, body["with_payload"])

	must := body["filter"].(map[string]any)["must"].([]any)
	require.Len(t, must, 1)
	clause := must[0].(map[string]any)
	assert.Equal(t, "species", clause["key"])
	assert.Equal(t, "dog", clause["match"].(map[string]any)["value"])

	require.Len(t, hits, 2)
	// Numeric point IDs normalize back to strings.
	assert.Equal(t, "7", hits[0].ID)
	assert.Equal(t, 0.91, hits[0].Score)
	assert.Equal(t, "dog", hits[0].Payload["species"])
	assert.Equal(t, "b1e0c0de-0000-0000-0000-000000000000", hits[1].ID)
}

func TestQuerySparse(t *testing.T) {
	fake, store := newQdrantFake(t)

	_, err := store.Query(context.Background(), QueryRequest{
		Space:  SpaceSparse,
		Sparse: &SparseVector{Indices: []uint32{1}, Values: []float32{0.4}},
		Limit:  5,
	})
	require.NoError(t, err)

	body := fake.requests[0].Body
	assert.Equal(t, SpaceSparse, body["using"])
	query := body["query"].(map[string]any)
	assert.Equal(t, []any{float64(1)}, query["indices"])
	// Filter is omitted entirely when empty.
	assert.NotContains(t, body, "filter")
}

func TestQuerySparseRequiresVector(t *testing.T) {
	_, store := newQdrantFake(t)
	_, err := store.Query(context.Background(), QueryRequest{Space: SpaceSparse})
	assert.Error(t, err)
}

func TestQueryUnknownSpace(t *testing.T) {
	_, store := newQdrantFake(t)
	_, err := store.Query(context.Background(), QueryRequest{Space: "hyperbolic"})
	assert.Error(t, err)
}

func TestQueryServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)
	store := NewQdrantStore(QdrantConfig{URL: ts.URL})

	_, err := store.Query(context.Background(), QueryRequest{
		Space: SpaceDense,
		Dense: []float32{0.1},
		Limit: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
