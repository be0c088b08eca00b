package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashBackend generates embeddings by hashing tokens into vector slots.
// It is fully deterministic and side-effect-free: the same text always
// yields the same vector, in the same process or a different one.
type HashBackend struct {
	dim int
}

// NewHashBackend creates a hash embedding backend with the given
// dimension. A dimension <= 0 uses DefaultDimensions.
func NewHashBackend(dim int) *HashBackend {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &HashBackend{dim: dim}
}

// Embed tokenizes text, hashes each token to a vector slot, accumulates a
// signed increment per token (sign from the hash's low bit, to reduce bias
// from slot collisions), and L2-normalizes the result. Empty or
// whitespace-only input yields the zero vector.
func (b *HashBackend) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, b.dim)

	for _, token := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		idx := int(sum % uint32(b.dim))
		if sum&1 == 1 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	normalizeInPlace(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (b *HashBackend) Dimensions() int {
	return b.dim
}

// Name returns the backend identifier.
func (b *HashBackend) Name() string {
	return BackendHash
}

// Close releases resources (none for the hash backend).
func (b *HashBackend) Close() error {
	return nil
}

var _ Backend = (*HashBackend)(nil)

// minTokenLen drops noise tokens; single characters carry no signal.
const minTokenLen = 2

// Tokenize lowercases text, splits on non-alphanumeric runs, and drops
// tokens shorter than two characters.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
