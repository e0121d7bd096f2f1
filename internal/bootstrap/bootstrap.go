// Package bootstrap wires configuration to concrete adapters and hands the
// assembled usecases to the entrypoints.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	httpadapter "github.com/dmarchuk/rag-document-assistant/internal/adapters/http"
	"github.com/dmarchuk/rag-document-assistant/internal/config"
	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
	"github.com/dmarchuk/rag-document-assistant/internal/core/usecase"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/chunking"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/extractor"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/llm/ollama"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/llm/openai"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/queue/nats"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/resilience"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/vector/localindex"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Extractor httpadapter.Extractor
	IngestUC  ports.DocumentIngestor
	QueryUC   ports.QueryService
	CatalogUC ports.DocumentCatalog

	// ProviderConfigured reports whether the active LLM provider has the
	// credentials or endpoint it needs; surfaced by the health endpoint.
	ProviderConfigured bool

	closeFn func()
}

func New(cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	embedder, generator, err := newProvider(cfg, executor)
	if err != nil {
		return nil, err
	}

	index, closeIndex, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}

	var events ports.EventPublisher
	var closeQueue func()
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			// Events are best-effort; a down broker must not block startup.
			slog.Warn("nats_unavailable", "url", cfg.NATSURL, "error", err)
		} else {
			events = publisher
			closeQueue = publisher.Close
		}
	}

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init splitter: %w", err)
	}

	registry := extractor.NewRegistry()
	ingestUC := usecase.NewIngestUseCase(chunker, embedder, index, events)
	queryUC := usecase.NewQueryUseCase(embedder, index, generator, cfg.RAGTopK)
	catalogUC := usecase.NewCatalogUseCase(index, events)

	return &App{
		Config: cfg,

		Extractor: registry,
		IngestUC:  ingestUC,
		QueryUC:   queryUC,
		CatalogUC: catalogUC,

		ProviderConfigured: providerConfigured(cfg),

		closeFn: func() {
			if closeQueue != nil {
				closeQueue()
			}
			if closeIndex != nil {
				closeIndex()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func providerConfigured(cfg config.Config) bool {
	switch cfg.LLMProvider {
	case "openai":
		return cfg.OpenAIAPIKey != ""
	default:
		return cfg.OllamaURL != ""
	}
}

func newProvider(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, error) {
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			GenModel:    cfg.OpenAIGenModel,
			EmbedModel:  cfg.OpenAIEmbedModel,
			Temperature: cfg.GenTemperature,
			MaxTokens:   cfg.GenMaxTokens,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init openai provider: %w", err)
		}
		return openai.NewEmbedder(client, executor), openai.NewGenerator(client), nil
	case "ollama", "":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			Temperature: cfg.GenTemperature,
			MaxTokens:   cfg.GenMaxTokens,
		})
		return ollama.NewEmbedder(client, executor), ollama.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newIndex(cfg config.Config) (ports.VectorIndex, func(), error) {
	switch cfg.IndexBackend {
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil, nil
	case "local", "":
		if dir := filepath.Dir(cfg.IndexPath); dir != "." && cfg.IndexPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create index directory: %w", err)
			}
		}
		index, err := localindex.Open(cfg.IndexPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open local index: %w", err)
		}
		return index, func() { _ = index.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}
