package store

import (
	"fmt"
	"sort"

	"github.com/viterin/vek/vek32"
)

// SimilarUtterances ranks stored utterances against a query vector by
// cosine similarity. Only strictly positive scores are returned, best
// first. Utterances whose stored vector does not match the query's
// dimensionality are skipped rather than failing the search.
func (s *Store) SimilarUtterances(query []float32, topK int) ([]Utterance, error) {
	if len(query) == 0 || topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT id, text, start_time, end_time, embedding FROM utterances WHERE embedding IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning utterance vectors: %w", err)
	}
	defer rows.Close()

	var scored []Utterance
	for rows.Next() {
		var u Utterance
		var blob []byte
		if err := rows.Scan(&u.ID, &u.Text, &u.Start, &u.End, &blob); err != nil {
			return nil, fmt.Errorf("scanning utterance: %w", err)
		}
		vec := decodeEmbedding(blob)
		if len(vec) != len(query) {
			continue
		}
		score := vek32.CosineSimilarity(query, vec)
		if score <= 0 {
			continue
		}
		u.Score = float64(score)
		scored = append(scored, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning utterance vectors: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
