// Package localindex is a durable, embedded vector index backed by SQLite.
// Vectors, chunk text and metadata live in one table; search is exact
// brute-force cosine over all rows, which is the right trade-off for the
// corpus sizes a single-process document assistant sees.
package localindex

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index at path and runs the schema migration.
// Use ":memory:" in tests.
func Open(path string) (*Index, error) {
	// WAL keeps readers unblocked during inserts; the single connection
	// serializes writers so SQLITE_BUSY cannot surface mid-ingest.
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT    NOT NULL UNIQUE,
    doc_id       TEXT    NOT NULL,
    filename     TEXT    NOT NULL,
    chunk_index  INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    upload_time  TEXT    NOT NULL,
    text         TEXT    NOT NULL,
    vector       BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks (doc_id);
`
	if _, err := x.db.Exec(ddl); err != nil {
		return fmt.Errorf("migrate index schema: %w", err)
	}
	return nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) Insert(ctx context.Context, entry domain.IndexEntry) error {
	if entry.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index insert", errors.New("empty entry id"))
	}
	if norm(entry.Vector) == 0 {
		return domain.WrapError(domain.ErrInvalidVector, "index insert", fmt.Errorf("zero-norm vector for %s", entry.ID))
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE id = ?`, entry.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check id uniqueness: %w", err)
	}
	if exists > 0 {
		return domain.WrapError(domain.ErrDuplicateID, "index insert", fmt.Errorf("id %s already indexed", entry.ID))
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO chunks (id, doc_id, filename, chunk_index, total_chunks, upload_time, text, vector)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		entry.ID, entry.Meta.DocumentID, entry.Meta.Filename, entry.Meta.ChunkIndex,
		entry.Meta.TotalChunks, entry.Meta.UploadTime.UTC().Format(time.RFC3339Nano),
		entry.Text, encodeVector(entry.Vector),
	)
	if err != nil {
		return fmt.Errorf("insert chunk %s: %w", entry.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (x *Index) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error) {
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, domain.WrapError(domain.ErrInvalidVector, "index search", errors.New("zero-norm query vector"))
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx, `
SELECT seq, id, doc_id, filename, chunk_index, text, vector
FROM chunks
ORDER BY seq
`)
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}
	defer rows.Close()

	type scored struct {
		chunk domain.RetrievedChunk
		seq   int64
	}
	var hits []scored
	for rows.Next() {
		var (
			seq        int64
			id         string
			blob       []byte
			chunk      domain.RetrievedChunk
			chunkIndex int
		)
		if err := rows.Scan(&seq, &id, &chunk.DocumentID, &chunk.Filename, &chunkIndex, &chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		stored := decodeVector(blob)
		if len(stored) != len(vector) {
			return nil, domain.WrapError(domain.ErrInvalidVector, "index search",
				fmt.Errorf("dimension mismatch for %s: stored %d, query %d", id, len(stored), len(vector)))
		}
		chunk.ChunkIndex = chunkIndex
		chunk.Relevance = clampSimilarity(dot(stored, vector) / (norm(stored) * queryNorm))
		hits = append(hits, scored{chunk: chunk, seq: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index: %w", err)
	}

	// Stable sort over rows already ordered by seq: equal similarities keep
	// insertion order, earlier entry wins.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].chunk.Relevance > hits[j].chunk.Relevance
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.chunk)
	}
	return out, nil
}

// DeleteByDocument removes every chunk of docID. The delete and its
// post-condition check run in one transaction, so a failure leaves either
// all chunks or none.
func (x *Index) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", docID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted rows: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE doc_id = ?`, docID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("verify delete: %w", err)
	}
	if remaining != 0 {
		return 0, fmt.Errorf("delete document %s left %d chunks behind", docID, remaining)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return int(removed), nil
}

func (x *Index) CountByDocument(ctx context.Context, docID string) (int, error) {
	var count int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE doc_id = ?`, docID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count document chunks: %w", err)
	}
	return count, nil
}

func (x *Index) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := x.db.QueryContext(ctx, `
SELECT doc_id, MIN(filename), COUNT(*), MIN(upload_time)
FROM chunks
GROUP BY doc_id
ORDER BY MIN(seq)
`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var doc domain.Document
		var uploaded string
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ChunkCount, &uploaded); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, uploaded); err == nil {
			doc.UploadTime = ts
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(v)*4))
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeVector(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	_ = binary.Read(bytes.NewReader(blob), binary.LittleEndian, &out)
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// clampSimilarity maps raw cosine from [-1,1] into the [0,1] relevance range.
// Anti-correlated vectors clamp to zero rather than going negative.
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
