//go:build sqlite_vec && cgo

package kb

import (
	"context"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver.
	// vec.Auto() registers it as an auto-loadable extension.
	vec.Auto()
}

// rank scores snippets inside SQLite using sqlite-vec. vec_distance_cosine
// returns distance, so similarity is 1.0 - distance; ordering by distance
// ascending with the row ID as tie-break matches the in-process path.
func (ix *Index) rank(ctx context.Context, queryVec []float32, topK int) ([]Snippet, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT source, content, vec_distance_cosine(embedding, ?) AS distance
		FROM snippets
		ORDER BY distance ASC, id ASC
		LIMIT ?`, encodeVector(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []Snippet
	for rows.Next() {
		var s Snippet
		var distance float64
		if err := rows.Scan(&s.Source, &s.Text, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		s.Similarity = 1.0 - distance
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search iteration failed: %w", err)
	}
	return results, nil
}
