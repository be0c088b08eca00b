// Package embed maps chunk text to fixed-dimension vectors. Two backends
// exist: a deterministic hash embedding that is always available, and an
// external model embedding that falls back to the hash embedding on
// failure so a provider outage never fails a reindex pass.
package embed

import (
	"context"
	"math"
)

// Backend identifiers, persisted in snapshot headers. An index built under
// one backend is never merged with vectors from another.
const (
	BackendHash  = "hash"
	BackendModel = "model"
)

// DefaultDimensions is the vector dimension used when the configuration
// does not specify one.
const DefaultDimensions = 256

// Backend generates L2-normalized vector embeddings for text.
//
// Contract: Embed returns a zero vector (never an error) for empty or
// whitespace-only input, and every returned vector has unit length (or is
// the zero vector) so cosine similarity downstream reduces to a dot
// product.
type Backend interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// Name returns the backend identifier ("hash" or "model").
	Name() string

	// Close releases resources.
	Close() error
}

// normalizeInPlace scales v to unit length. The zero vector is left as-is.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
