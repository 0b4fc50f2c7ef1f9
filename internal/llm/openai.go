package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to an OpenAI-compatible chat/embedding API (OpenAI,
// DeepSeek, or any proxy speaking the same wire format). All calls run
// through per-endpoint circuit breakers and surface failures as *ModelError.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	embedModel string
	timeout    time.Duration

	chatBreaker  *CircuitBreaker
	embedBreaker *CircuitBreaker
}

// OpenAIConfig holds client configuration.
type OpenAIConfig struct {
	// APIKey authenticates against the endpoint.
	APIKey string

	// BaseURL overrides the API host (e.g. https://api.deepseek.com/v1).
	// Empty means the official OpenAI endpoint.
	BaseURL string

	// Model is the chat model used for all structured generation
	// (default: deepseek-chat).
	Model string

	// EmbedModel is the embedding model (default: text-embedding-3-small).
	EmbedModel string

	// Timeout bounds a single call (default: 30s).
	Timeout time.Duration
}

// NewOpenAIClient creates a client with defaults applied.
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-3-small"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        config.Model,
		embedModel:   config.EmbedModel,
		timeout:      config.Timeout,
		chatBreaker:  NewCircuitBreaker("model-chat"),
		embedBreaker: NewCircuitBreaker("model-embed"),
	}
}

// Complete sends prompt as a system message and returns the raw completion
// text. JSON response format is requested so that structured-output callers
// get parseable content. Exactly one API call is made; there is no retry.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.chatBreaker.Execute(ctx, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty choice list")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", modelErr("complete", err)
	}
	return result.(string), nil
}

// Embed generates a dense embedding for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.embedBreaker.Execute(ctx, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding vector")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, modelErr("embed", err)
	}
	return result.([]float32), nil
}

// EmbedBatch generates embeddings for a batch of texts in a single API call.
// The result preserves input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result, err := c.embedBreaker.Execute(ctx, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		vectors := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vectors[i] = d.Embedding
		}
		return vectors, nil
	})
	if err != nil {
		return nil, modelErr("embed", err)
	}
	return result.([][]float32), nil
}

// GetModel returns the configured chat model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

var _ TextGenerator = (*OpenAIClient)(nil)
var _ EmbeddingGenerator = (*OpenAIClient)(nil)
