package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
)

// IngestUseCase runs the full ingestion pipeline synchronously: chunk, embed,
// index. A failure anywhere rolls the document back, so the index never holds
// a partially ingested document.
type IngestUseCase struct {
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	events   ports.EventPublisher
}

func NewIngestUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	events ports.EventPublisher,
) *IngestUseCase {
	return &IngestUseCase{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		events:   events,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, filename, text string) (*domain.IngestResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("document has no extractable text"))
	}

	docID := documentID(filename, trimmed)

	// The duplicate check runs before the first insert so the rollback below
	// can never delete chunks that belong to an earlier upload.
	existing, err := uc.index.CountByDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}
	if existing > 0 {
		return nil, domain.WrapError(domain.ErrDuplicateID, "ingest", fmt.Errorf("document %s already ingested", docID))
	}

	spans := uc.chunker.Split(trimmed)
	if len(spans) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("no chunks produced"))
	}

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(spans) {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "ingest",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(spans)))
	}

	uploadTime := time.Now().UTC()
	for i, span := range spans {
		entry := domain.IndexEntry{
			ID:     fmt.Sprintf("%s_chunk_%d", docID, i),
			Vector: vectors[i],
			Text:   span.Text,
			Meta: domain.ChunkMeta{
				DocumentID:  docID,
				Filename:    filename,
				ChunkIndex:  i,
				TotalChunks: len(spans),
				UploadTime:  uploadTime,
			},
		}
		if err := uc.index.Insert(ctx, entry); err != nil {
			uc.rollback(ctx, docID)
			return nil, fmt.Errorf("index chunk %d: %w", i, err)
		}
	}

	result := &domain.IngestResult{
		DocumentID: docID,
		Filename:   filename,
		ChunkCount: len(spans),
		UploadTime: uploadTime.Format(time.RFC3339),
	}

	if uc.events != nil {
		if err := uc.events.PublishDocumentIngested(ctx, *result); err != nil {
			slog.Warn("publish_ingest_event_failed", "document_id", docID, "error", err)
		}
	}
	return result, nil
}

func (uc *IngestUseCase) rollback(ctx context.Context, docID string) {
	if _, err := uc.index.DeleteByDocument(ctx, docID); err != nil {
		slog.Error("ingest_rollback_failed", "document_id", docID, "error", err)
	}
}

// documentID is stable for identical filename+content, so a re-upload of the
// same file is caught as a duplicate rather than indexed twice.
func documentID(filename, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s_%s", sanitizeFilename(filename), hex.EncodeToString(sum[:])[:8])
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
