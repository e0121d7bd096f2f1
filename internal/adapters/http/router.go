// Package httpadapter exposes the ingestion and retrieval usecases over a
// small JSON API. Handlers are thin: decode, call the usecase, map the error.
package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
	"github.com/dmarchuk/rag-document-assistant/internal/observability/metrics"
)

// maxUploadBytes bounds a single document upload.
const maxUploadBytes = 32 << 20

// Extractor is what the upload handler needs from the extraction layer.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
	Supports(filename string) bool
	SupportedExtensions() []string
}

type Router struct {
	extractor          Extractor
	ingest             ports.DocumentIngestor
	query              ports.QueryService
	catalog            ports.DocumentCatalog
	metrics            *metrics.HTTPServerMetrics
	providerConfigured bool
}

func NewRouter(
	extractor Extractor,
	ingest ports.DocumentIngestor,
	query ports.QueryService,
	catalog ports.DocumentCatalog,
	serverMetrics *metrics.HTTPServerMetrics,
	providerConfigured bool,
) *Router {
	return &Router{
		extractor:          extractor,
		ingest:             ingest,
		query:              query,
		catalog:            catalog,
		metrics:            serverMetrics,
		providerConfigured: providerConfigured,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/formats", rt.formats)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/rag/query", rt.queryRAG)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = metricsMiddleware(rt.metrics, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.catalog.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"documents_count":     len(docs),
		"provider_configured": rt.providerConfigured,
		"supported_formats":   rt.extractor.SupportedExtensions(),
	})
}

func (rt *Router) formats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_formats": rt.extractor.SupportedExtensions(),
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if !rt.extractor.Supports(fileHeader.Filename) {
		rt.metrics.ObserveIngest("unsupported_format", 0, 0)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "unsupported file format",
			"filename":          fileHeader.Filename,
			"supported_formats": rt.extractor.SupportedExtensions(),
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	text, err := rt.extractor.Extract(r.Context(), fileHeader.Filename, data)
	if err != nil {
		rt.metrics.ObserveIngest("extract_failed", 0, 0)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	result, err := rt.ingest.Ingest(r.Context(), fileHeader.Filename, text)
	if err != nil {
		rt.metrics.ObserveIngest("failed", 0, 0)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	rt.metrics.ObserveIngest("ok", result.ChunkCount, time.Since(started))
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.catalog.List(r.Context())
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	removed, err := rt.catalog.Delete(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    id,
		"removed_chunks": removed,
	})
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := rt.query.Query(r.Context(), req.Question, req.TopK)
	if err != nil {
		rt.metrics.ObserveQuery("error", 0, 0)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	rt.metrics.ObserveQuery("ok", len(answer.Sources), answer.Confidence)
	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
