// Package ollama implements the embedding and answer-generation ports against
// a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type Options struct {
	Temperature float64
	MaxTokens   int
}

func New(baseURL, genModel, embedModel string, opts Options) *Client {
	if opts.Temperature <= 0 {
		opts.Temperature = 0.3
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    genModel,
		embedModel:  embedModel,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

type Embedder struct {
	client   *Client
	executor *resilience.Executor
}

// NewEmbedder wraps the client's embed calls in the executor; a nil executor
// means a single attempt per call.
func NewEmbedder(client *Client, executor *resilience.Executor) *Embedder {
	return &Embedder{client: client, executor: executor}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed", errors.New("no texts to embed"))
	}
	// Blank inputs are rejected here; they never reach the provider.
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "embed", fmt.Errorf("text %d is empty", i))
		}
	}

	var vectors [][]float32
	err := e.executor.Execute(ctx, "ollama_embed", func(ctx context.Context) error {
		request := map[string]any{
			"model": e.client.embedModel,
			"input": texts,
		}
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return err
		}
		vectors = response.Embeddings
		return nil
	}, classifyProviderError)
	if err != nil {
		return nil, wrapEmbeddingError("embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed",
			fmt.Errorf("got %d embeddings for %d inputs", len(vectors), len(texts)))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// Generate runs a single completion. Generation is never retried; a flaky
// answer surfaced twice costs more than one clean failure.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": g.client.temperature,
			"num_predict": g.client.maxTokens,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", wrapGenerationError("generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}
