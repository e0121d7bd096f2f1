// Package qdrant implements the vector index port against a Qdrant server's
// HTTP API. Durability is the server's concern; this client keeps the same
// semantics the embedded index guarantees (unique chunk ids, [0,1]
// similarity, all-or-nothing document deletes).
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// pointID derives a deterministic UUIDv5 from the composite chunk id, so the
// same chunk always maps to the same Qdrant point.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (c *Client) Insert(ctx context.Context, entry domain.IndexEntry) error {
	if vectorNorm(entry.Vector) == 0 {
		return domain.WrapError(domain.ErrInvalidVector, "qdrant insert", fmt.Errorf("zero-norm vector for %s", entry.ID))
	}
	if err := c.ensureCollection(ctx, len(entry.Vector)); err != nil {
		return err
	}

	id := pointID(entry.ID)
	exists, err := c.pointExists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return domain.WrapError(domain.ErrDuplicateID, "qdrant insert", fmt.Errorf("id %s already indexed", entry.ID))
	}

	reqBody := map[string]any{
		"points": []map[string]any{
			{
				"id":     id,
				"vector": entry.Vector,
				"payload": map[string]any{
					"chunk_id":     entry.ID,
					"doc_id":       entry.Meta.DocumentID,
					"filename":     entry.Meta.Filename,
					"chunk_index":  entry.Meta.ChunkIndex,
					"total_chunks": entry.Meta.TotalChunks,
					"upload_time":  entry.Meta.UploadTime.UTC().Format(time.RFC3339Nano),
					"text":         entry.Text,
				},
			},
		},
	}

	var resp struct{}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.do(ctx, http.MethodPut, path, reqBody, &resp, "upsert"); err != nil {
		return err
	}
	return nil
}

func (c *Client) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error) {
	if vectorNorm(vector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidVector, "qdrant search", errors.New("zero-norm query vector"))
	}
	if topK <= 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			DocumentID: payloadString(r.Payload, "doc_id"),
			Filename:   payloadString(r.Payload, "filename"),
			ChunkIndex: payloadInt(r.Payload, "chunk_index"),
			Text:       payloadString(r.Payload, "text"),
			Relevance:  clampSimilarity(r.Score),
		})
	}
	return out, nil
}

func (c *Client) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	before, err := c.CountByDocument(ctx, docID)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 0, nil
	}

	reqBody := map[string]any{"filter": docFilter(docID)}
	var resp struct{}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &resp, "delete"); err != nil {
		return 0, err
	}

	remaining, err := c.CountByDocument(ctx, docID)
	if err != nil {
		return 0, err
	}
	if remaining != 0 {
		return 0, fmt.Errorf("qdrant delete for %s left %d chunks behind", docID, remaining)
	}
	return before, nil
}

func (c *Client) CountByDocument(ctx context.Context, docID string) (int, error) {
	reqBody := map[string]any{
		"filter": docFilter(docID),
		"exact":  true,
	}
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &countResp, "count"); err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	type scrollPoint struct {
		Payload map[string]any `json:"payload"`
	}

	summaries := make(map[string]*domain.Document)
	var order []string
	var offset any

	for {
		reqBody := map[string]any{
			"limit":        256,
			"with_payload": true,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var scrollResp struct {
			Result struct {
				Points         []scrollPoint `json:"points"`
				NextPageOffset any           `json:"next_page_offset"`
			} `json:"result"`
		}
		path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
		if err := c.do(ctx, http.MethodPost, path, reqBody, &scrollResp, "scroll"); err != nil {
			return nil, err
		}

		for _, p := range scrollResp.Result.Points {
			docID := payloadString(p.Payload, "doc_id")
			if docID == "" {
				continue
			}
			doc, ok := summaries[docID]
			if !ok {
				doc = &domain.Document{ID: docID, Filename: payloadString(p.Payload, "filename")}
				if ts, err := time.Parse(time.RFC3339Nano, payloadString(p.Payload, "upload_time")); err == nil {
					doc.UploadTime = ts
				}
				summaries[docID] = doc
				order = append(order, docID)
			}
			doc.ChunkCount++
		}

		if scrollResp.Result.NextPageOffset == nil {
			break
		}
		offset = scrollResp.Result.NextPageOffset
	}

	out := make([]domain.Document, 0, len(order))
	for _, id := range order {
		out = append(out, *summaries[id])
	}
	// Scroll order follows point ids, not insertion; upload time is the
	// closest stable stand-in for first-seen order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadTime.Before(out[j].UploadTime)
	})
	return out, nil
}

func (c *Client) pointExists(ctx context.Context, id string) (bool, error) {
	reqBody := map[string]any{"ids": []string{id}}
	var resp struct {
		Result []struct {
			ID any `json:"id"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &resp, "retrieve"); err != nil {
		return false, err
	}
	return len(resp.Result) > 0, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 when the collection already exists.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
		}
		return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func docFilter(docID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "doc_id",
				"match": map[string]any{"value": docID},
			},
		},
	}
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func clampSimilarity(cos float64) float64 {
	switch {
	case cos < 0:
		return 0
	case cos > 1:
		return 1
	default:
		return cos
	}
}
