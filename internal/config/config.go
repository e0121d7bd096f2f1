// Package config loads runtime configuration from the environment with an
// optional YAML overlay (CONFIG_FILE). Environment variables win over file
// values; defaults cover a local single-machine setup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	// "ollama" or "openai"
	LLMProvider string `yaml:"llm_provider"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`
	OpenAIGenModel   string `yaml:"openai_gen_model"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`

	// "local" (embedded SQLite index) or "qdrant"
	IndexBackend string `yaml:"index_backend"`
	IndexPath    string `yaml:"index_path"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`

	// Empty NATSURL disables event publishing.
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	RAGTopK      int `yaml:"rag_top_k"`

	GenTemperature float64 `yaml:"gen_temperature"`
	GenMaxTokens   int     `yaml:"gen_max_tokens"`
}

func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		LLMProvider: "ollama",

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",

		OpenAIGenModel:   "gpt-4o-mini",
		OpenAIEmbedModel: "text-embedding-3-small",

		IndexBackend: "local",
		IndexPath:    "./data/index.db",

		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "documents",

		NATSSubject: "documents.events",

		ChunkSize:    1000,
		ChunkOverlap: 200,
		RAGTopK:      3,

		GenTemperature: 0.3,
		GenMaxTokens:   500,
	}
}

func applyEnv(cfg *Config) {
	setEnv(&cfg.APIPort, "API_PORT")
	setEnv(&cfg.LogLevel, "LOG_LEVEL")
	setEnv(&cfg.LLMProvider, "LLM_PROVIDER")
	setEnv(&cfg.OllamaURL, "OLLAMA_URL")
	setEnv(&cfg.OllamaGenModel, "OLLAMA_GEN_MODEL")
	setEnv(&cfg.OllamaEmbedModel, "OLLAMA_EMBED_MODEL")
	setEnv(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setEnv(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setEnv(&cfg.OpenAIGenModel, "OPENAI_GEN_MODEL")
	setEnv(&cfg.OpenAIEmbedModel, "OPENAI_EMBED_MODEL")
	setEnv(&cfg.IndexBackend, "INDEX_BACKEND")
	setEnv(&cfg.IndexPath, "INDEX_PATH")
	setEnv(&cfg.QdrantURL, "QDRANT_URL")
	setEnv(&cfg.QdrantCollection, "QDRANT_COLLECTION")
	setEnv(&cfg.NATSURL, "NATS_URL")
	setEnv(&cfg.NATSSubject, "NATS_SUBJECT")
	setEnvInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setEnvInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP")
	setEnvInt(&cfg.RAGTopK, "RAG_TOP_K")
	setEnvFloat(&cfg.GenTemperature, "GEN_TEMPERATURE")
	setEnvInt(&cfg.GenMaxTokens, "GEN_MAX_TOKENS")
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setEnvFloat(dst *float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}
