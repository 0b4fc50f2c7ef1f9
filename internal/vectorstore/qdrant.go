package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// QdrantStore talks to a Qdrant instance over its REST API. One store maps
// to one collection with named "dense" and "sparse" vector spaces.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// URL is the Qdrant endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: pet_health_hybrid).
	Collection string

	// Timeout bounds one HTTP call (default: 5s).
	Timeout time.Duration
}

// NewQdrantStore creates a Qdrant-backed store with defaults applied.
func NewQdrantStore(config QdrantConfig) *QdrantStore {
	if config.URL == "" {
		config.URL = "http://localhost:6333"
	}
	if config.Collection == "" {
		config.Collection = "pet_health_hybrid"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return &QdrantStore{
		baseURL:    config.URL,
		apiKey:     config.APIKey,
		collection: config.Collection,
		client:     &http.Client{Timeout: config.Timeout},
	}
}

// do issues one JSON request and decodes the response body into out (when
// out is non-nil).
func (s *QdrantStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant: %s %s returned status %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}

// EnsureCollection creates the hybrid collection if missing: a cosine dense
// space of the given dimension plus an in-memory sparse space.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int) error {
	var existsResp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/"+s.collection+"/exists", nil, &existsResp); err != nil {
		return err
	}
	if existsResp.Result.Exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			SpaceDense: map[string]any{
				"size":     dim,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			SpaceSparse: map[string]any{},
		},
	}
	return s.do(ctx, http.MethodPut, "/collections/"+s.collection, body, nil)
}

// pointID renders an ID the way Qdrant expects: numeric when possible,
// string (UUID) otherwise.
func pointID(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

// Upsert writes points with both named vectors and the payload.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload = append(payload, map[string]any{
			"id": pointID(p.ID),
			"vector": map[string]any{
				SpaceDense:  p.Dense,
				SpaceSparse: p.Sparse,
			},
			"payload": p.Payload,
		})
	}
	return s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points?wait=true",
		map[string]any{"points": payload}, nil)
}

// qdrantFilter converts an exact-match conjunction into Qdrant filter form.
func qdrantFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for key, value := range filter {
		if value == "" {
			continue
		}
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

// Query runs one named-space search and returns ranked hits with payloads.
func (s *QdrantStore) Query(ctx context.Context, req QueryRequest) ([]Hit, error) {
	var query any
	switch req.Space {
	case SpaceDense:
		query = req.Dense
	case SpaceSparse:
		if req.Sparse == nil {
			return nil, fmt.Errorf("qdrant: sparse query requires a sparse vector")
		}
		query = req.Sparse
	default:
		return nil, fmt.Errorf("qdrant: unknown vector space %q", req.Space)
	}

	body := map[string]any{
		"query":        query,
		"using":        req.Space,
		"limit":        req.Limit,
		"with_payload": true,
	}
	if f := qdrantFilter(req.Filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/query", body, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		hits = append(hits, Hit{
			ID:      hitID(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return hits, nil
}

// hitID normalizes a Qdrant point ID (number or UUID string) to a string.
func hitID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Close is a no-op; the HTTP client holds no persistent connection state
// worth tearing down explicitly.
func (s *QdrantStore) Close() error { return nil }

var _ Store = (*QdrantStore)(nil)
