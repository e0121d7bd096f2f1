package ports

import (
	"context"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

// TextExtractor turns raw uploaded bytes into plain text. Extraction is a
// collaborator, not part of the retrieval core: the usecases only ever see
// the extracted string.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
	Supports(filename string) bool
}

// Chunker splits extracted text into overlapping, sentence-aware spans.
type Chunker interface {
	Split(text string) []domain.ChunkSpan
}

// Embedder builds vectors for chunks and query text. Embed returns one vector
// per input, same order. Empty input strings are rejected before any network
// call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores (vector, text, metadata) tuples and answers
// nearest-neighbour queries by cosine similarity mapped into [0,1].
// Implementations are durable across restarts and safe for concurrent use;
// insert, search and delete are individually atomic.
type VectorIndex interface {
	// Insert adds one entry. Fails with domain.ErrDuplicateID if the id is
	// already present and with domain.ErrInvalidVector on a zero-norm vector.
	Insert(ctx context.Context, entry domain.IndexEntry) error
	// Search returns at most topK entries ranked by descending similarity,
	// ties broken by insertion order. A zero-norm query vector fails with
	// domain.ErrInvalidVector.
	Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error)
	// DeleteByDocument removes every entry of one document and reports how
	// many were removed. All-or-nothing from the caller's point of view.
	DeleteByDocument(ctx context.Context, docID string) (int, error)
	// CountByDocument reports how many entries a document currently has.
	CountByDocument(ctx context.Context, docID string) (int, error)
	// ListDocuments groups entries by document id, first-seen order.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// AnswerGenerator invokes the generative model with a fully built prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EventPublisher emits document lifecycle events for external consumers.
// Publishing is best-effort; failures must not fail the operation itself.
type EventPublisher interface {
	PublishDocumentIngested(ctx context.Context, result domain.IngestResult) error
	PublishDocumentDeleted(ctx context.Context, docID string, removedChunks int) error
}
