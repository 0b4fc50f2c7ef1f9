package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRerankServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *RerankClient) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client := NewRerankClient(RerankConfig{
		BaseURL: ts.URL,
		APIKey:  "test-key",
		Model:   "test-reranker",
	})
	return ts, client
}

func TestRerankOrdersByEndpointScore(t *testing.T) {
	var gotReq rerankRequest
	_, client := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 1, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.40},
			},
		})
	})

	results, err := client.Rerank(context.Background(), "dog vomiting", []RerankCandidate{
		{ID: "a", Text: "cat sneezing"},
		{ID: "b", Text: "dog vomiting after meals"},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-reranker", gotReq.Model)
	assert.Equal(t, "dog vomiting", gotReq.Query)
	assert.Equal(t, []string{"cat sneezing", "dog vomiting after meals"}, gotReq.Documents)

	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, 0.95, results[0].Score)
	assert.Equal(t, "a", results[1].ID)
}

func TestRerankSkipsOutOfRangeIndexes(t *testing.T) {
	_, client := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 5, "relevance_score": 0.9},
				{"index": -1, "relevance_score": 0.8},
				{"index": 0, "relevance_score": 0.7},
			},
		})
	})

	results, err := client.Rerank(context.Background(), "q", []RerankCandidate{{ID: "a", Text: "doc"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRerankEmptyCandidatesSkipsCall(t *testing.T) {
	called := false
	_, client := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	results, err := client.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.False(t, called)
}

func TestRerankServerErrorIsModelError(t *testing.T) {
	_, client := newRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Rerank(context.Background(), "q", []RerankCandidate{{ID: "a", Text: "doc"}})
	require.Error(t, err)
	assert.True(t, IsModelError(err))
}
