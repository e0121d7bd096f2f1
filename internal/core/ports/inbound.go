package ports

import (
	"context"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for ingesting extracted text.
type DocumentIngestor interface {
	Ingest(ctx context.Context, filename, text string) (*domain.IngestResult, error)
}

// QueryService answers natural-language questions over indexed documents.
type QueryService interface {
	Query(ctx context.Context, question string, topK int) (*domain.Answer, error)
}

// DocumentCatalog lists and deletes ingested documents.
type DocumentCatalog interface {
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, docID string) (int, error)
}
