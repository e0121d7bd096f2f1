package domain

// RetrievedChunk is one search hit: the chunk text, where it came from and
// its relevance in [0,1]. Results are ordered by descending relevance, ties
// broken by insertion order.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Relevance  float64 `json:"relevance"`
}

// Source is the citation view of a retrieved chunk included in an answer.
type Source struct {
	Filename  string  `json:"filename"`
	ChunkText string  `json:"chunk_text"`
	Relevance float64 `json:"relevance"`
}

// Answer is the final composed response. It is ephemeral: returned to the
// caller and never persisted.
type Answer struct {
	Text       string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
	LatencyMS  int64    `json:"latency_ms"`
}
