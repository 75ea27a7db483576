// Package embedding implements exact cosine-similarity search over face embeddings.
package embedding

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Dimension is the length of every face embedding the system stores.
const Dimension = 128

var (
	ErrDimension = errors.New("embedding dimension mismatch")
	ErrThreshold = errors.New("similarity threshold out of range")
)

// CheckDimension rejects vectors that are not exactly Dimension long.
func CheckDimension(v []float32) error {
	if len(v) != Dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), Dimension)
	}
	return nil
}

// CheckThreshold accepts any finite threshold in [-1, 1). Similarity must be strictly
// greater, so 1 could never match.
func CheckThreshold(t float64) error {
	if math.IsNaN(t) || t < -1 || t >= 1 {
		return fmt.Errorf("%w: %v not in [-1, 1)", ErrThreshold, t)
	}
	return nil
}

// CosineSimilarity returns 1 - cosine distance, the same value pgvector yields for
// 1 - (a <=> b). A zero vector has no direction and scores 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Candidate is a stored vector keyed by an opaque id.
type Candidate struct {
	ID     string
	Vector []float32
}

// Hit is a candidate that passed the threshold.
type Hit struct {
	ID         string
	Similarity float64
}

// TopK scores every candidate against query and keeps those strictly above
// threshold, most similar first, truncated to limit. Equal scores keep the
// candidates' input order. Candidates of a different length are skipped.
func TopK(query []float32, candidates []Candidate, threshold float64, limit int) []Hit {
	if limit <= 0 {
		return nil
	}

	var hits []Hit
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			continue
		}
		s := CosineSimilarity(query, c.Vector)
		if s > threshold {
			hits = append(hits, Hit{ID: c.ID, Similarity: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
