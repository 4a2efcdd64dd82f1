package kb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"mindmate/internal/embedding"
	"mindmate/internal/logging"
)

// =============================================================================
// IN-MEMORY VECTOR INDEX
// =============================================================================

// Snippet is one retrieval result: a passage and its similarity to the query.
type Snippet struct {
	Source     string
	Text       string
	Similarity float64
}

// Index holds the embedded knowledge base in an in-memory SQLite database.
// It is built once at startup and read-only afterwards; a restart recomputes
// it from the source documents. Concurrent reads need no coordination beyond
// the driver's own, since no writer exists after Build.
//
// Ranking runs inside SQLite through the sqlite-vec extension when built
// with the sqlite_vec tag, and in Go otherwise; both paths share the same
// stored vector encoding and the same ordering contract.
type Index struct {
	db     *sql.DB
	engine embedding.Engine

	mu    sync.RWMutex
	built bool
	count int
}

// NewIndex creates an empty index backed by an in-memory SQLite database.
func NewIndex(engine embedding.Engine) (*Index, error) {
	if engine == nil {
		return nil, fmt.Errorf("embedding engine is required")
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A :memory: DSN owns one database per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE snippets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snippets table: %w", err)
	}

	return &Index{db: db, engine: engine}, nil
}

// Build embeds all documents and stores them. Call once at startup.
func (ix *Index) Build(ctx context.Context, docs []Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.built {
		return fmt.Errorf("index already built")
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to index")
	}

	timer := logging.StartTimer(logging.CategoryRetrieval, "Index.Build")
	defer timer.Stop()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := ix.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d documents", len(vectors), len(docs))
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO snippets (source, content, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		if _, err := stmt.Exec(doc.Source, doc.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}

	ix.built = true
	ix.count = len(docs)
	logging.Retrieval("Index built: %d snippets, engine=%s", ix.count, ix.engine.Name())
	return nil
}

// Len returns the number of indexed snippets.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// Retrieve embeds the query and returns up to topK snippets ranked by cosine
// similarity descending. Results are deterministic for identical inputs:
// ties break on the lower row ID.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.built {
		return nil, fmt.Errorf("index not built")
	}
	if topK <= 0 {
		topK = 4
	}

	queryVec, err := ix.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := ix.rank(ctx, queryVec, topK)
	if err != nil {
		return nil, err
	}

	logging.RetrievalDebug("Retrieve: query_len=%d top_k=%d results=%d", len(query), topK, len(results))
	return results, nil
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// encodeVector serializes an embedding as a little-endian float32 blob, the
// layout sqlite-vec expects for its distance functions.
func encodeVector(vec []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		// Should never happen with bytes.Buffer
		return nil
	}
	return buf.Bytes()
}

// decodeVector is the inverse of encodeVector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed embedding blob: %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}
