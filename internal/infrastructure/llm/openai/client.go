// Package openai implements the embedding and answer-generation ports on the
// OpenAI API (or any compatible endpoint via BaseURL).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string
	GenModel    string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
}

type Client struct {
	api         *goopenai.Client
	genModel    string
	embedModel  string
	temperature float32
	maxTokens   int
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "openai client", errors.New("api key is empty"))
	}
	if cfg.GenModel == "" {
		cfg.GenModel = goopenai.GPT4oMini
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = string(goopenai.SmallEmbedding3)
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api:         goopenai.NewClientWithConfig(apiCfg),
		genModel:    cfg.GenModel,
		embedModel:  cfg.EmbedModel,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

type Embedder struct {
	client   *Client
	executor *resilience.Executor
}

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
	err := e.executor.Execute(ctx, "openai_embed", func(ctx context.Context) error {
		resp, err := e.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts,
			Model: goopenai.EmbeddingModel(e.client.embedModel),
		})
		if err != nil {
			return err
		}
		// The API does not guarantee response order; Index restores it.
		data := make([]goopenai.Embedding, len(resp.Data))
		copy(data, resp.Data)
		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

		vectors = make([][]float32, 0, len(data))
		for _, d := range data {
			v := make([]float32, len(d.Embedding))
			copy(v, d.Embedding)
			vectors = append(vectors, v)
		}
		return nil
	}, classifyAPIError)
	if err != nil {
		return nil, wrapProviderError(domain.ErrEmbeddingUnavailable, "embed", err)
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

// Generate is single-shot; generation errors surface immediately.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.client.genModel,
		Temperature: g.client.temperature,
		MaxTokens:   g.client.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", wrapProviderError(domain.ErrGenerationUnavailable, "generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate", errors.New("empty completion"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyAPIError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.Verdict{Retryable: true, RecordFailure: true}
		default:
			return resilience.Verdict{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}
	return resilience.Verdict{Retryable: false, RecordFailure: true}
}

func wrapProviderError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if domain.IsKind(err, kind) {
		return err
	}
	return domain.WrapError(kind, operation, err)
}
