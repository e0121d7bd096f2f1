package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
)

// CatalogUseCase serves the document bookkeeping surface. It owns no state of
// its own; everything derives from index metadata.
type CatalogUseCase struct {
	index  ports.VectorIndex
	events ports.EventPublisher
}

func NewCatalogUseCase(index ports.VectorIndex, events ports.EventPublisher) *CatalogUseCase {
	return &CatalogUseCase{index: index, events: events}
}

func (uc *CatalogUseCase) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := uc.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

// Delete removes every chunk of docID. Deleting an unknown id succeeds with
// zero removed chunks.
func (uc *CatalogUseCase) Delete(ctx context.Context, docID string) (int, error) {
	removed, err := uc.index.DeleteByDocument(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", docID, err)
	}

	if removed > 0 && uc.events != nil {
		if err := uc.events.PublishDocumentDeleted(ctx, docID, removed); err != nil {
			slog.Warn("publish_delete_event_failed", "document_id", docID, "error", err)
		}
	}
	return removed, nil
}
