// Package index implements the two per-document indices behind a document
// agent: a SQLite-persisted vector index for semantic search, and an
// in-memory summary index rebuilt on every run.
//
// The vector index is the only cached artifact with invalidation semantics:
// each index file records a content hash of the source document, and a build
// is skipped only when the stored hash matches the current content. A changed
// document therefore triggers a rebuild instead of silently serving stale
// vectors.
package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/docmind-go/internal/rag"
)

// vectorDBFile is the file name of the per-document vector index inside the
// document's cache directory.
const vectorDBFile = "vectors.db"

// VectorIndex is a per-document vector index backed by a local SQLite file.
// Search is brute-force cosine over the document's chunks, which stays fast
// at per-document scale (tens to low hundreds of chunks).
type VectorIndex struct {
	// db is the underlying database connection pool.
	db *sql.DB

	// docID identifies the owning document.
	docID string
}

// VectorDBPath returns the SQLite file path for a document's vector index
// under the given cache directory.
func VectorDBPath(cacheDir, docID string) string {
	return filepath.Join(cacheDir, docID, vectorDBFile)
}

// ContentHash returns the hex SHA-256 of a document's content, used as the
// cache validity key.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}

// OpenVectorIndex opens (or creates) the vector index for docID under
// cacheDir and runs the schema migration. Use ":memory:" as cacheDir
// replacement only through openAt in tests.
func OpenVectorIndex(cacheDir, docID string) (*VectorIndex, error) {
	dir := filepath.Join(cacheDir, docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: create cache dir %s: %w", dir, err)
	}
	return openAt(filepath.Join(dir, vectorDBFile), docID)
}

// openAt opens a VectorIndex at an explicit SQLite path.
func openAt(path, docID string) (*VectorIndex, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	v := &VectorIndex{db: db, docID: docID}
	if err := v.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

// migrate creates the schema if it does not already exist.
func (v *VectorIndex) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    idx        INTEGER PRIMARY KEY,
    text       TEXT    NOT NULL,
    embedding  BLOB    NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
`
	if _, err := v.db.Exec(ddl); err != nil {
		return fmt.Errorf("index: migrate: %w", err)
	}
	return nil
}

// Fresh reports whether the index already holds vectors for a document whose
// content hash equals contentHash. A fresh index must not be rebuilt.
func (v *VectorIndex) Fresh(ctx context.Context, contentHash string) (bool, error) {
	var stored string
	err := v.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'content_hash'`).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index: read content hash: %w", err)
	}
	return stored == contentHash, nil
}

// Rebuild replaces the index contents with the given chunks and their
// embeddings, then records the content hash so subsequent builds with
// unchanged content short-circuit.
func (v *VectorIndex) Rebuild(ctx context.Context, contentHash string, chunks []rag.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("index: chunks and embeddings length mismatch (%d vs %d)", len(chunks), len(embeddings))
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("index: clear chunks: %w", err)
	}
	for i, chunk := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (idx, text, embedding) VALUES (?, ?, ?)`,
			chunk.Index, chunk.Text, encodeVector(embeddings[i]),
		); err != nil {
			return fmt.Errorf("index: insert chunk %d: %w", chunk.Index, err)
		}
	}
	for key, value := range map[string]string{
		"content_hash": contentHash,
		"chunk_count":  fmt.Sprintf("%d", len(chunks)),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("index: write meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit rebuild: %w", err)
	}
	return nil
}

// ChunkCount returns the number of chunks currently stored in the index.
func (v *VectorIndex) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count chunks: %w", err)
	}
	return n, nil
}

// Texts returns all stored chunk texts in index order.
func (v *VectorIndex) Texts(ctx context.Context) ([]string, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT text FROM chunks ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("index: texts query: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("index: texts scan: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: texts rows: %w", err)
	}
	return texts, nil
}

// Search performs a brute-force cosine similarity search over the stored
// chunks and returns the top-k matches, highest score first.
func (v *VectorIndex) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Chunk, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := v.db.QueryContext(ctx, `SELECT idx, text, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("index: search query: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var idx int
		var text string
		var blob []byte
		if err := rows.Scan(&idx, &text, &blob); err != nil {
			return nil, fmt.Errorf("index: search scan: %w", err)
		}
		chunks = append(chunks, rag.Chunk{
			DocID: v.docID,
			Index: idx,
			Text:  text,
			Score: cosine(queryEmbedding, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: search rows: %w", err)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// Upsert satisfies rag.VectorStore by appending chunks with their embeddings.
// The builder uses Rebuild for full replacement; Upsert exists for callers
// that stream chunks incrementally.
func (v *VectorIndex) Upsert(ctx context.Context, chunks []rag.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("index: chunks and embeddings length mismatch (%d vs %d)", len(chunks), len(embeddings))
	}
	for i, chunk := range chunks {
		if _, err := v.db.ExecContext(ctx,
			`INSERT INTO chunks (idx, text, embedding) VALUES (?, ?, ?)
			 ON CONFLICT(idx) DO UPDATE SET text = excluded.text, embedding = excluded.embedding`,
			chunk.Index, chunk.Text, encodeVector(embeddings[i]),
		); err != nil {
			return fmt.Errorf("index: upsert chunk %d: %w", chunk.Index, err)
		}
	}
	return nil
}

// Close releases the database connection pool.
func (v *VectorIndex) Close() error {
	if err := v.db.Close(); err != nil {
		return fmt.Errorf("index: close: %w", err)
	}
	return nil
}

// cosine returns the cosine similarity of a and b, or 0 when either vector
// is zero-length or zero-norm.
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
