package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

type fakeChunker struct {
	size int
}

// Split cuts fixed-size pieces; sentence awareness is the real splitter's
// concern and is tested there.
func (c *fakeChunker) Split(text string) []domain.ChunkSpan {
	size := c.size
	if size <= 0 {
		size = 10
	}
	var spans []domain.ChunkSpan
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece == "" {
			continue
		}
		spans = append(spans, domain.ChunkSpan{Text: piece, Start: start, End: end})
	}
	return spans
}

type fakeEmbedder struct {
	calls   int
	failOn  int // 1-based call number to fail on, 0 = never
	lastIn  []string
	failErr error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.lastIn = texts
	if e.failOn > 0 && e.calls >= e.failOn {
		if e.failErr != nil {
			return nil, e.failErr
		}
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("provider down"))
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// fakeIndex is an in-memory VectorIndex with optional fault injection.
type fakeIndex struct {
	entries      []domain.IndexEntry
	failInsertAt int // 1-based insert count to fail on, 0 = never
	inserts      int
	searchHits   []domain.RetrievedChunk
	searchTopK   int
	searchErr    error
}

func (x *fakeIndex) Insert(_ context.Context, entry domain.IndexEntry) error {
	x.inserts++
	if x.failInsertAt > 0 && x.inserts >= x.failInsertAt {
		return errors.New("index write failed")
	}
	for _, e := range x.entries {
		if e.ID == entry.ID {
			return domain.WrapError(domain.ErrDuplicateID, "insert", fmt.Errorf("id %s", entry.ID))
		}
	}
	x.entries = append(x.entries, entry)
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _ []float32, topK int) ([]domain.RetrievedChunk, error) {
	x.searchTopK = topK
	if x.searchErr != nil {
		return nil, x.searchErr
	}
	if len(x.searchHits) > topK {
		return x.searchHits[:topK], nil
	}
	return x.searchHits, nil
}

func (x *fakeIndex) DeleteByDocument(_ context.Context, docID string) (int, error) {
	var kept []domain.IndexEntry
	removed := 0
	for _, e := range x.entries {
		if e.Meta.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	x.entries = kept
	return removed, nil
}

func (x *fakeIndex) CountByDocument(_ context.Context, docID string) (int, error) {
	count := 0
	for _, e := range x.entries {
		if e.Meta.DocumentID == docID {
			count++
		}
	}
	return count, nil
}

func (x *fakeIndex) ListDocuments(_ context.Context) ([]domain.Document, error) {
	byID := map[string]*domain.Document{}
	var order []string
	for _, e := range x.entries {
		doc, ok := byID[e.Meta.DocumentID]
		if !ok {
			doc = &domain.Document{
				ID:         e.Meta.DocumentID,
				Filename:   e.Meta.Filename,
				UploadTime: e.Meta.UploadTime,
			}
			byID[e.Meta.DocumentID] = doc
			order = append(order, e.Meta.DocumentID)
		}
		doc.ChunkCount++
	}
	out := make([]domain.Document, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

type fakeGenerator struct {
	calls      int
	lastPrompt string
	answer     string
	err        error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	if g.answer == "" {
		return "generated answer", nil
	}
	return g.answer, nil
}

type fakePublisher struct {
	ingested []domain.IngestResult
	deleted  []string
	err      error
}

func (p *fakePublisher) PublishDocumentIngested(_ context.Context, result domain.IngestResult) error {
	if p.err != nil {
		return p.err
	}
	p.ingested = append(p.ingested, result)
	return nil
}

func (p *fakePublisher) PublishDocumentDeleted(_ context.Context, docID string, _ int) error {
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, docID)
	return nil
}
