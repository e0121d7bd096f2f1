package domain

import "time"

// Document is the bookkeeping view of one uploaded file. It is derived from
// the vector index metadata, not stored separately: the index is the single
// source of truth for what has been ingested.
type Document struct {
	ID         string    `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
}

// ChunkSpan is one chunk produced by the splitter: the trimmed text plus the
// rune offset range it covers in the source document.
type ChunkSpan struct {
	Text  string
	Start int
	End   int
}

// ChunkMeta is the metadata persisted next to each indexed vector. The field
// layout is a durable contract: backup and migration tooling reads it.
type ChunkMeta struct {
	DocumentID  string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	UploadTime  time.Time `json:"upload_time"`
}

// IndexEntry is one (vector, text, metadata) tuple handed to the vector index.
type IndexEntry struct {
	ID     string
	Vector []float32
	Text   string
	Meta   ChunkMeta
}

// IngestResult reports what a successful ingestion actually indexed.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadTime string `json:"upload_time"`
}
