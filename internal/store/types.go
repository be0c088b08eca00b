// Package store implements the two index structures at the heart of
// retrieval: an inverted BM25 postings index and a brute-force vector
// index, plus their versioned on-disk snapshots and the per-file
// bookkeeping used for incremental updates.
package store

import (
	"encoding/json"
	"fmt"
)

// ChunkingConfig captures the settings that determine chunk identity.
// Two indexes built under different chunking configs are not comparable,
// so a persisted snapshot whose config disagrees with the running one is
// discarded wholesale.
type ChunkingConfig struct {
	HeadingLevel string `json:"headingLevel"`
	TargetWords  int    `json:"targetWords"`
	OverlapWords int    `json:"overlapWords"`
}

// VectorChunk is one indexed unit in the vector index. Vector is
// L2-normalized at embed time so cosine similarity is a plain dot
// product.
type VectorChunk struct {
	Key        string    `json:"key"`
	Path       string    `json:"path"`
	ChunkIndex int       `json:"chunkIndex"`
	StartWord  int       `json:"startWord"`
	EndWord    int       `json:"endWord"`
	TextHash   uint32    `json:"textHash"`
	Excerpt    string    `json:"excerpt"`
	Vector     []float32 `json:"vector"`
}

// LexicalChunk is one indexed unit in the lexical index. Len is the
// token count after stop-word filtering; it feeds BM25 length
// normalization.
type LexicalChunk struct {
	Key        string `json:"key"`
	Path       string `json:"path"`
	ChunkIndex int    `json:"chunkIndex"`
	StartWord  int    `json:"startWord"`
	EndWord    int    `json:"endWord"`
	TextHash   uint32 `json:"textHash"`
	Excerpt    string `json:"excerpt"`
	Len        int    `json:"len"`
}

// ScoredChunk is a raw per-index query hit, before fusion.
type ScoredChunk struct {
	Key     string
	Path    string
	Excerpt string
	Score   float64
}

// Posting records one chunk's term frequency in a postings list. It
// serializes as a compact ["chunkKey", tf] tuple.
type Posting struct {
	Key string
	TF  int
}

// MarshalJSON encodes the posting as a two-element array.
func (p Posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.TF})
}

// UnmarshalJSON decodes the ["chunkKey", tf] tuple form.
func (p *Posting) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("posting: expected [key, tf] tuple, got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.Key); err != nil {
		return fmt.Errorf("posting key: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &p.TF); err != nil {
		return fmt.Errorf("posting tf: %w", err)
	}
	return nil
}
