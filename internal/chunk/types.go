// Package chunk splits vault documents into overlapping word windows, the
// atomic units of indexing and retrieval. It also owns content hashing and
// excerpt generation so both indexes agree on chunk identity.
package chunk

import (
	"fmt"
	"strings"
)

// ExcerptLimit bounds the length of the whitespace-normalized preview text
// stored with each chunk.
const ExcerptLimit = 500

// Span is a word-bounded slice of a document produced by the chunker.
// StartWord is inclusive, EndWord exclusive.
type Span struct {
	Text      string
	StartWord int
	EndWord   int
}

// Key derives the globally unique chunk key from the owning document path
// and the chunk's ordinal position. The derivation is deterministic so a
// reindex of unchanged content produces identical keys.
func Key(path string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", path, chunkIndex)
}

// Excerpt returns a whitespace-normalized preview of text, truncated to
// ExcerptLimit characters.
func Excerpt(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	runes := []rune(normalized)
	if len(runes) <= ExcerptLimit {
		return normalized
	}
	return string(runes[:ExcerptLimit])
}
