// Package config provides configuration for the vetagent services.
// Settings resolve in three layers: built-in defaults, then an optional YAML
// file, then environment variables with the VETAGENT_ prefix. Environment
// always wins so deployments can override a shared file per instance.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the vetagent application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Inquiry   InquiryConfig   `yaml:"inquiry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string  `yaml:"host"`             // bind host (default: 127.0.0.1)
	Port           int     `yaml:"port"`             // bind port (default: 8080)
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // requests per second per client (default: 5)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst allowance (default: 10)
}

// StorageConfig selects and configures the vector backend and the session
// checkpoint database.
type StorageConfig struct {
	// VectorBackend is "qdrant" or "postgres" (default: qdrant).
	VectorBackend string `yaml:"vector_backend"`

	QdrantURL        string `yaml:"qdrant_url"`        // default: http://localhost:6333
	QdrantAPIKey     string `yaml:"qdrant_api_key"`    //
	QdrantCollection string `yaml:"qdrant_collection"` // default: pet_health_hybrid

	PostgresDSN   string `yaml:"postgres_dsn"`   //
	PostgresTable string `yaml:"postgres_table"` // default: pet_records

	// SessionDBPath is the SQLite checkpoint file; empty selects the
	// in-memory session store.
	SessionDBPath string `yaml:"session_db_path"`

	// SessionBackupDir enables periodic snapshots of the checkpoint
	// database when set. Empty disables backups.
	SessionBackupDir             string `yaml:"session_backup_dir"`
	SessionBackupIntervalMinutes int    `yaml:"session_backup_interval_minutes"` // default: 60
	SessionBackupKeep            int    `yaml:"session_backup_keep"`             // snapshots retained (default: 24)
}

// LLMConfig contains model provider settings.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`         //
	BaseURL        string `yaml:"base_url"`        // OpenAI-compatible endpoint; empty uses the provider default
	ChatModel      string `yaml:"chat_model"`      // default: deepseek-chat
	EmbeddingModel string `yaml:"embedding_model"` // default: text-embedding-3-small
	EmbeddingDim   int    `yaml:"embedding_dim"`   // default: 1536
	TimeoutSeconds int    `yaml:"timeout_seconds"` // default: 30

	RerankEnabled  bool   `yaml:"rerank_enabled"`   // default: false
	RerankerURL    string `yaml:"reranker_url"`     // default: https://api.jina.ai/v1
	RerankerAPIKey string `yaml:"reranker_api_key"` //
	RerankerModel  string `yaml:"reranker_model"`   // default: jina-reranker-v2-base-multilingual
}

// RetrievalConfig tunes the hybrid fusion engine.
type RetrievalConfig struct {
	RecallLimit   int     `yaml:"recall_limit"`    // per-path recall width (default: 40)
	PerQueryLimit int     `yaml:"per_query_limit"` // candidates kept per query (default: 10)
	TopK          int     `yaml:"top_k"`           // final evidence budget (default: 5)
	RRFK          int     `yaml:"rrf_k"`           // RRF denominator constant (default: 40)
	DenseWeight   float64 `yaml:"dense_weight"`    // default: 1.0
	SparseWeight  float64 `yaml:"sparse_weight"`   // default: 1.0
}

// InquiryConfig bounds the clarifying-question loop.
type InquiryConfig struct {
	MaxTurns          int `yaml:"max_turns"`           // default: 3
	MaxOptionalRounds int `yaml:"max_optional_rounds"` // default: 1
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Storage: StorageConfig{
			VectorBackend:    "qdrant",
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "pet_health_hybrid",
			PostgresTable:    "pet_records",
			SessionDBPath:    "./data/sessions.db",

			SessionBackupIntervalMinutes: 60,
			SessionBackupKeep:            24,
		},
		LLM: LLMConfig{
			ChatModel:      "deepseek-chat",
			EmbeddingModel: "text-embedding-3-small",
			EmbeddingDim:   1536,
			TimeoutSeconds: 30,
			RerankerURL:    "https://api.jina.ai/v1",
			RerankerModel:  "jina-reranker-v2-base-multilingual",
		},
		Retrieval: RetrievalConfig{
			RecallLimit:   40,
			PerQueryLimit: 10,
			TopK:          5,
			RRFK:          40,
			DenseWeight:   1.0,
			SparseWeight:  1.0,
		},
		Inquiry: InquiryConfig{
			MaxTurns:          3,
			MaxOptionalRounds: 1,
		},
	}
}

// Load builds the configuration. path names an optional YAML file; the empty
// string skips the file layer entirely.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds the configuration from defaults and environment only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// applyEnv overlays VETAGENT_-prefixed environment variables.
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("VETAGENT_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("VETAGENT_PORT", c.Server.Port)
	c.Server.RateLimitRPS = getEnvFloat("VETAGENT_RATE_LIMIT_RPS", c.Server.RateLimitRPS)
	c.Server.RateLimitBurst = getEnvInt("VETAGENT_RATE_LIMIT_BURST", c.Server.RateLimitBurst)

	c.Storage.VectorBackend = getEnv("VETAGENT_VECTOR_BACKEND", c.Storage.VectorBackend)
	c.Storage.QdrantURL = getEnv("VETAGENT_QDRANT_URL", c.Storage.QdrantURL)
	c.Storage.QdrantAPIKey = getEnv("VETAGENT_QDRANT_API_KEY", c.Storage.QdrantAPIKey)
	c.Storage.QdrantCollection = getEnv("VETAGENT_QDRANT_COLLECTION", c.Storage.QdrantCollection)
	c.Storage.PostgresDSN = getEnv("VETAGENT_POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.PostgresTable = getEnv("VETAGENT_POSTGRES_TABLE", c.Storage.PostgresTable)
	c.Storage.SessionDBPath = getEnv("VETAGENT_SESSION_DB_PATH", c.Storage.SessionDBPath)
	c.Storage.SessionBackupDir = getEnv("VETAGENT_SESSION_BACKUP_DIR", c.Storage.SessionBackupDir)
	c.Storage.SessionBackupIntervalMinutes = getEnvInt("VETAGENT_SESSION_BACKUP_INTERVAL_MINUTES", c.Storage.SessionBackupIntervalMinutes)
	c.Storage.SessionBackupKeep = getEnvInt("VETAGENT_SESSION_BACKUP_KEEP", c.Storage.SessionBackupKeep)

	c.LLM.APIKey = getEnv("VETAGENT_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("VETAGENT_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.ChatModel = getEnv("VETAGENT_CHAT_MODEL", c.LLM.ChatModel)
	c.LLM.EmbeddingModel = getEnv("VETAGENT_EMBEDDING_MODEL", c.LLM.EmbeddingModel)
	c.LLM.EmbeddingDim = getEnvInt("VETAGENT_EMBEDDING_DIM", c.LLM.EmbeddingDim)
	c.LLM.TimeoutSeconds = getEnvInt("VETAGENT_LLM_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)
	c.LLM.RerankEnabled = getEnvBool("VETAGENT_RERANK_ENABLED", c.LLM.RerankEnabled)
	c.LLM.RerankerURL = getEnv("VETAGENT_RERANKER_URL", c.LLM.RerankerURL)
	c.LLM.RerankerAPIKey = getEnv("VETAGENT_RERANKER_API_KEY", c.LLM.RerankerAPIKey)
	c.LLM.RerankerModel = getEnv("VETAGENT_RERANKER_MODEL", c.LLM.RerankerModel)

	c.Retrieval.RecallLimit = getEnvInt("VETAGENT_RECALL_LIMIT", c.Retrieval.RecallLimit)
	c.Retrieval.PerQueryLimit = getEnvInt("VETAGENT_PER_QUERY_LIMIT", c.Retrieval.PerQueryLimit)
	c.Retrieval.TopK = getEnvInt("VETAGENT_TOP_K", c.Retrieval.TopK)
	c.Retrieval.RRFK = getEnvInt("VETAGENT_RRF_K", c.Retrieval.RRFK)
	c.Retrieval.DenseWeight = getEnvFloat("VETAGENT_DENSE_WEIGHT", c.Retrieval.DenseWeight)
	c.Retrieval.SparseWeight = getEnvFloat("VETAGENT_SPARSE_WEIGHT", c.Retrieval.SparseWeight)

	c.Inquiry.MaxTurns = getEnvInt("VETAGENT_INQUIRY_MAX_TURNS", c.Inquiry.MaxTurns)
	c.Inquiry.MaxOptionalRounds = getEnvInt("VETAGENT_INQUIRY_MAX_OPTIONAL_ROUNDS", c.Inquiry.MaxOptionalRounds)
}

// validate rejects configurations that cannot possibly work.
func (c *Config) validate() error {
	switch c.Storage.VectorBackend {
	case "qdrant", "postgres":
	default:
		return fmt.Errorf("config: unknown vector backend %q (want qdrant or postgres)", c.Storage.VectorBackend)
	}
	if c.Storage.VectorBackend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: postgres backend requires VETAGENT_POSTGRES_DSN")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.LLM.EmbeddingDim <= 0 {
		return fmt.Errorf("config: invalid embedding dimension %d", c.LLM.EmbeddingDim)
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.RecallLimit <= 0 {
		return fmt.Errorf("config: retrieval limits must be positive")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
