package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
)

const (
	fallbackTopK = 3
	maxTopK      = 20
)

// NoContextAnswer is returned verbatim when retrieval finds nothing; the
// generative model is not called in that case.
const NoContextAnswer = "I couldn't find any relevant information in the uploaded documents to answer your question. Please try rephrasing or upload relevant documents."

type QueryUseCase struct {
	embedder    ports.Embedder
	index       ports.VectorIndex
	generator   ports.AnswerGenerator
	defaultTopK int
}

// NewQueryUseCase takes the retrieval depth used when a request leaves topK
// unset; non-positive values fall back to 3 and the [1, maxTopK] clamp still
// applies per request.
func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	defaultTopK int,
) *QueryUseCase {
	if defaultTopK <= 0 {
		defaultTopK = fallbackTopK
	}
	if defaultTopK > maxTopK {
		defaultTopK = maxTopK
	}
	return &QueryUseCase{
		embedder:    embedder,
		index:       index,
		generator:   generator,
		defaultTopK: defaultTopK,
	}
}

func (uc *QueryUseCase) Query(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	// The clock starts before embedding: reported latency covers the whole
	// retrieval pipeline, not just generation.
	started := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", errors.New("question is empty"))
	}
	if topK <= 0 {
		topK = uc.defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := uc.index.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(chunks) == 0 {
		return &domain.Answer{
			Text:       NoContextAnswer,
			Confidence: 0,
			Sources:    []domain.Source{},
			LatencyMS:  time.Since(started).Milliseconds(),
		}, nil
	}

	answerText, err := uc.generator.Generate(ctx, buildPrompt(question, chunks))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.Source, 0, len(chunks))
	var relevanceSum float64
	for _, chunk := range chunks {
		relevanceSum += chunk.Relevance
		sources = append(sources, domain.Source{
			Filename:  chunk.Filename,
			ChunkText: chunk.Text,
			Relevance: chunk.Relevance,
		})
	}

	return &domain.Answer{
		Text:       answerText,
		Confidence: relevanceSum / float64(len(chunks)),
		Sources:    sources,
		LatencyMS:  time.Since(started).Milliseconds(),
	}, nil
}
