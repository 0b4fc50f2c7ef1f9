package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RerankClient calls a REST rerank endpoint (Jina/Cohere wire shape:
// POST {model, query, documents[]} -> results[{index, relevance_score}]).
type RerankClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	breaker *CircuitBreaker
	timeout time.Duration
}

// RerankConfig holds reranker client configuration.
type RerankConfig struct {
	// BaseURL is the rerank endpoint root (default:
	// https://api.jina.ai/v1).
	BaseURL string

	// APIKey authenticates the request.
	APIKey string

	// Model is the rerank model name (default: jina-reranker-v2-base-multilingual).
	Model string

	// Timeout bounds one rerank call (default: 10s).
	Timeout time.Duration
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewRerankClient creates a rerank client with defaults applied.
func NewRerankClient(config RerankConfig) *RerankClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.jina.ai/v1"
	}
	if config.Model == "" {
		config.Model = "jina-reranker-v2-base-multilingual"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &RerankClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		model:   config.Model,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: NewCircuitBreaker("model-rerank"),
		timeout: config.Timeout,
	}
}

// Rerank re-scores candidates against query. The returned slice is ordered
// best first and may be shorter than the input when the endpoint truncates.
func (c *RerankClient) Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.rerank(ctx, query, candidates)
	})
	if err != nil {
		return nil, modelErr("rerank", err)
	}
	return result.([]RerankResult), nil
}

func (c *RerankClient) rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Text
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker returned status %d: %s", resp.StatusCode, string(msg))
	}

	var respData rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]RerankResult, 0, len(respData.Results))
	for _, r := range respData.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		results = append(results, RerankResult{
			ID:    candidates[r.Index].ID,
			Score: r.RelevanceScore,
		})
	}
	return results, nil
}

var _ Reranker = (*RerankClient)(nil)
