// Package embedding turns free text into fixed-dimension vectors.
package embedding

import (
	"context"
	"math"

	"github.com/myrjola/foundit/internal/errors"
)

var (
	ErrEmptyInput      = errors.NewSentinel("empty input")
	ErrInvalidConfig   = errors.NewSentinel("invalid embedding configuration")
	ErrEmbeddingFailed = errors.NewSentinel("embedding failed")
	ErrNotAvailable    = errors.NewSentinel("embedding provider not available in this build")
)

// Embedder maps texts to vectors of Dimension length. Identical input yields identical output.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Provider is an Embedder holding resources that must be released with Close.
type Provider interface {
	Embedder
	Close() error
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. It returns 0 when either vector is all zeros or the
// lengths differ.
func Cosine(a, b []float32) float64 {
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
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim))
}

// Normalize scales v to unit length in place and returns it. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Float64s widens v for numeric code that works on float64.
func Float64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
