package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(_ context.Context, _ string, _ []byte) (string, error) {
	return e.text, e.err
}

func (e *stubExtractor) Supports(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}

func (e *stubExtractor) SupportedExtensions() []string {
	return []string{".txt"}
}

type stubIngestor struct {
	result *domain.IngestResult
	err    error
}

func (s *stubIngestor) Ingest(_ context.Context, filename, _ string) (*domain.IngestResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &domain.IngestResult{
		DocumentID: filename + "_abcd1234",
		Filename:   filename,
		ChunkCount: 2,
		UploadTime: "2026-03-01T10:00:00Z",
	}, nil
}

type stubQuery struct {
	answer *domain.Answer
	err    error
	gotTop int
}

func (s *stubQuery) Query(_ context.Context, _ string, topK int) (*domain.Answer, error) {
	s.gotTop = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type stubCatalog struct {
	docs    []domain.Document
	removed int
	err     error
	deleted []string
}

func (s *stubCatalog) List(_ context.Context) ([]domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.docs == nil {
		return []domain.Document{}, nil
	}
	return s.docs, nil
}

func (s *stubCatalog) Delete(_ context.Context, docID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.deleted = append(s.deleted, docID)
	return s.removed, nil
}

func newTestRouter(extractor Extractor, ingest *stubIngestor, query *stubQuery, catalog *stubCatalog) http.Handler {
	if extractor == nil {
		extractor = &stubExtractor{text: "extracted text"}
	}
	if ingest == nil {
		ingest = &stubIngestor{}
	}
	if query == nil {
		query = &stubQuery{answer: &domain.Answer{Text: "ok", Sources: []domain.Source{}}}
	}
	if catalog == nil {
		catalog = &stubCatalog{}
	}
	return NewRouter(extractor, ingest, query, catalog, nil, true).Handler()
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	catalog := &stubCatalog{docs: []domain.Document{
		{ID: "doc-1", Filename: "a.txt", ChunkCount: 3},
		{ID: "doc-2", Filename: "b.txt", ChunkCount: 1},
	}}
	handler := newTestRouter(nil, nil, nil, catalog)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	var resp struct {
		Status             string   `json:"status"`
		DocumentsCount     int      `json:"documents_count"`
		ProviderConfigured bool     `json:"provider_configured"`
		SupportedFormats   []string `json:"supported_formats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.DocumentsCount != 2 || !resp.ProviderConfigured {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.SupportedFormats) != 1 || resp.SupportedFormats[0] != ".txt" {
		t.Fatalf("supported formats = %v", resp.SupportedFormats)
	}
}

func TestHealthzDegradedWhenIndexUnreachable(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("index offline")}
	handler := newTestRouter(nil, nil, nil, catalog)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUploadDocumentCreated(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	body, contentType := multipartUpload(t, "notes.txt", "file content")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	var resp domain.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ChunkCount != 2 || resp.Filename != "notes.txt" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	body, contentType := multipartUpload(t, "archive.zip", "binary")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "supported_formats") {
		t.Fatalf("body = %s, want supported formats list", rec.Body.String())
	}
}

func TestUploadMissingFileField(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadDuplicateMapsToConflict(t *testing.T) {
	ingest := &stubIngestor{err: domain.WrapError(domain.ErrDuplicateID, "ingest", errors.New("already there"))}
	handler := newTestRouter(nil, ingest, nil, nil)
	body, contentType := multipartUpload(t, "notes.txt", "same content")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestUploadEmbeddingOutageMapsToServiceUnavailable(t *testing.T) {
	ingest := &stubIngestor{err: domain.WrapError(domain.ErrEmbeddingUnavailable, "ingest", errors.New("provider down"))}
	handler := newTestRouter(nil, ingest, nil, nil)
	body, contentType := multipartUpload(t, "notes.txt", "content")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	query := &stubQuery{answer: &domain.Answer{
		Text:       "the answer",
		Confidence: 0.8,
		Sources:    []domain.Source{{Filename: "a.txt", ChunkText: "ctx", Relevance: 0.8}},
		LatencyMS:  12,
	}}
	handler := newTestRouter(nil, nil, query, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query",
		strings.NewReader(`{"question":"what?","top_k":5}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if query.gotTop != 5 {
		t.Fatalf("topK = %d, want 5", query.gotTop)
	}
	var resp struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		LatencyMS  int64   `json:"latency_ms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "the answer" || resp.Confidence != 0.8 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestQueryValidation(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question":`},
		{"blank question", `{"question":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestQueryGenerationOutageMapsToServiceUnavailable(t *testing.T) {
	query := &stubQuery{err: domain.WrapError(domain.ErrGenerationUnavailable, "generate", errors.New("model down"))}
	handler := newTestRouter(nil, nil, query, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListDocuments(t *testing.T) {
	catalog := &stubCatalog{docs: []domain.Document{{ID: "doc-1", Filename: "a.txt", ChunkCount: 3}}}
	handler := newTestRouter(nil, nil, nil, catalog)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Documents []domain.Document `json:"documents"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Documents[0].ID != "doc-1" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDeleteDocumentIdempotent(t *testing.T) {
	catalog := &stubCatalog{removed: 0}
	handler := newTestRouter(nil, nil, nil, catalog)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/documents/unknown-doc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(catalog.deleted) != 1 || catalog.deleted[0] != "unknown-doc" {
		t.Fatalf("deleted = %v", catalog.deleted)
	}
	if !strings.Contains(rec.Body.String(), `"removed_chunks":0`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestFormatsEndpoint(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/formats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ".txt") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rag/query", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
