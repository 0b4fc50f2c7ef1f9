// Package app wires configuration into the concrete components the command
// binaries share. It contains construction only; behavior lives in the
// component packages.
package app

import (
	"fmt"
	"time"

	"github.com/pawsense/vetagent/internal/agent"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/dialogue"
	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/internal/retrieval"
	"github.com/pawsense/vetagent/internal/review"
	"github.com/pawsense/vetagent/internal/vectorstore"
)

// NewVectorStore builds the configured vector store backend.
func NewVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Storage.VectorBackend {
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:        cfg.Storage.QdrantURL,
			APIKey:     cfg.Storage.QdrantAPIKey,
			Collection: cfg.Storage.QdrantCollection,
		}), nil
	case "postgres":
		return vectorstore.NewPostgresStore(vectorstore.PostgresConfig{
			DSN:   cfg.Storage.PostgresDSN,
			Table: cfg.Storage.PostgresTable,
		})
	default:
		return nil, fmt.Errorf("app: unknown vector backend %q", cfg.Storage.VectorBackend)
	}
}

// NewLLMClient builds the chat/embedding client.
func NewLLMClient(cfg *config.Config) *llm.OpenAIClient {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.ChatModel,
		EmbedModel: cfg.LLM.EmbeddingModel,
		Timeout:    time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
}

// NewReranker builds the rerank client, or nil when re-ranking is disabled.
func NewReranker(cfg *config.Config) llm.Reranker {
	if !cfg.LLM.RerankEnabled {
		return nil
	}
	return llm.NewRerankClient(llm.RerankConfig{
		BaseURL: cfg.LLM.RerankerURL,
		APIKey:  cfg.LLM.RerankerAPIKey,
		Model:   cfg.LLM.RerankerModel,
	})
}

// NewSessionStore builds the session checkpoint store. An empty path selects
// the in-memory store.
func NewSessionStore(cfg *config.Config) (agent.SessionStore, error) {
	if cfg.Storage.SessionDBPath == "" {
		return agent.NewMemorySessionStore(), nil
	}
	return agent.NewSQLiteSessionStore(cfg.Storage.SessionDBPath)
}

// NewRetriever builds the hybrid retrieval engine.
func NewRetriever(cfg *config.Config, store vectorstore.Store, client *llm.OpenAIClient, reranker llm.Reranker) *retrieval.HybridRetriever {
	return retrieval.NewHybridRetriever(store, client, reranker, retrieval.Config{
		RecallLimit:   cfg.Retrieval.RecallLimit,
		PerQueryLimit: cfg.Retrieval.PerQueryLimit,
		TopK:          cfg.Retrieval.TopK,
		RRFK:          cfg.Retrieval.RRFK,
		DenseWeight:   cfg.Retrieval.DenseWeight,
		SparseWeight:  cfg.Retrieval.SparseWeight,
		UseReranker:   cfg.LLM.RerankEnabled,
	})
}

// NewEngine builds the full conversational engine.
func NewEngine(cfg *config.Config, client *llm.OpenAIClient, retriever *retrieval.HybridRetriever, sessions agent.SessionStore) *agent.Engine {
	inquiry := dialogue.NewInquiryController(client, dialogue.InquiryConfig{
		MaxTurns:          cfg.Inquiry.MaxTurns,
		MaxOptionalRounds: cfg.Inquiry.MaxOptionalRounds,
	})
	return agent.NewEngine(
		dialogue.NewProfileExtractor(client),
		dialogue.NewIntentClassifier(client),
		inquiry,
		retrieval.NewQueryPlanner(client),
		retriever,
		review.NewPipeline(client),
		sessions,
	)
}
