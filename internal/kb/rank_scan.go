//go:build !sqlite_vec || !cgo

package kb

import (
	"context"
	"fmt"

	"mindmate/internal/embedding"
)

// rank scores snippets in process. Rows are scanned in ID order so that
// FindTopK's lower-index tie-break lands on the lower row ID, matching the
// sqlite-vec path's ordering.
func (ix *Index) rank(ctx context.Context, queryVec []float32, topK int) ([]Snippet, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT source, content, embedding FROM snippets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query snippets: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	var vectors [][]float32
	for rows.Next() {
		var s Snippet
		var blob []byte
		if err := rows.Scan(&s.Source, &s.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, s)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snippet iteration failed: %w", err)
	}

	ranked, err := embedding.FindTopK(queryVec, vectors, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to rank snippets: %w", err)
	}

	results := make([]Snippet, 0, len(ranked))
	for _, r := range ranked {
		s := snippets[r.Index]
		s.Similarity = r.Similarity
		results = append(results, s)
	}
	return results, nil
}
