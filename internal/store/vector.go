package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a chunk's vector does not match
// the index's configured dimension. The chunk is dropped, never
// truncated or padded.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex stores one L2-normalized vector per chunk key and answers
// exact top-k cosine similarity queries by brute force. At vault scale
// (thousands of chunks) a linear scan with a dot product per chunk is
// well under a millisecond; an approximate structure would buy nothing.
type VectorIndex struct {
	mu       sync.RWMutex
	dim      int
	backend  string
	chunking ChunkingConfig
	chunks   map[string]*VectorChunk
	byPath   map[string]map[string]struct{}
}

// NewVectorIndex creates an empty vector index for the given embedding
// dimension, backend id, and chunking config.
func NewVectorIndex(dim int, backend string, chunking ChunkingConfig) *VectorIndex {
	return &VectorIndex{
		dim:      dim,
		backend:  backend,
		chunking: chunking,
		chunks:   make(map[string]*VectorChunk),
		byPath:   make(map[string]map[string]struct{}),
	}
}

// Dim returns the configured vector dimension.
func (idx *VectorIndex) Dim() int {
	return idx.dim
}

// Upsert stores the chunk by key, replacing any previous entry. Chunks
// whose vector dimension disagrees with the index are rejected with
// ErrDimensionMismatch.
func (idx *VectorIndex) Upsert(c *VectorChunk) error {
	if len(c.Vector) != idx.dim {
		return fmt.Errorf("%w: chunk %s has dim %d, index expects %d",
			ErrDimensionMismatch, c.Key, len(c.Vector), idx.dim)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(c)
	return nil
}

// ReplacePath atomically removes all chunks for path and inserts the
// given replacements. Replacements with a mismatched dimension are
// dropped; the number of chunks actually inserted is returned along with
// the first rejection error, if any.
func (idx *VectorIndex) ReplacePath(path string, chunks []*VectorChunk) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removePathLocked(path)

	var firstErr error
	kept := 0
	for _, c := range chunks {
		if len(c.Vector) != idx.dim {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: chunk %s has dim %d, index expects %d",
					ErrDimensionMismatch, c.Key, len(c.Vector), idx.dim)
			}
			continue
		}
		idx.insertLocked(c)
		kept++
	}
	return kept, firstErr
}

// RemoveByPath removes all chunks belonging to path.
func (idx *VectorIndex) RemoveByPath(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removePathLocked(path)
}

func (idx *VectorIndex) insertLocked(c *VectorChunk) {
	if old, ok := idx.chunks[c.Key]; ok && old.Path != c.Path {
		delete(idx.byPath[old.Path], c.Key)
		if len(idx.byPath[old.Path]) == 0 {
			delete(idx.byPath, old.Path)
		}
	}
	idx.chunks[c.Key] = c
	keys, ok := idx.byPath[c.Path]
	if !ok {
		keys = make(map[string]struct{})
		idx.byPath[c.Path] = keys
	}
	keys[c.Key] = struct{}{}
}

func (idx *VectorIndex) removePathLocked(path string) {
	for key := range idx.byPath[path] {
		delete(idx.chunks, key)
	}
	delete(idx.byPath, path)
}

// Get returns the chunk stored under key, or nil.
func (idx *VectorIndex) Get(key string) *VectorChunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.chunks[key]
}

// HasPath reports whether any chunks are indexed for path.
func (idx *VectorIndex) HasPath(path string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPath[path]) > 0
}

// Count returns the number of indexed chunks.
func (idx *VectorIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// PathCount returns the number of documents with at least one chunk.
func (idx *VectorIndex) PathCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPath)
}

// Query returns the top-limit chunks by cosine similarity to the query
// vector. Vectors are normalized at embed time, so similarity is a dot
// product. Results are ordered by descending score with the chunk key as
// a deterministic tiebreaker.
func (idx *VectorIndex) Query(query []float32, limit int) ([]ScoredChunk, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index expects %d",
			ErrDimensionMismatch, len(query), idx.dim)
	}
	if limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]ScoredChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		var dot float64
		for i, q := range query {
			dot += float64(q) * float64(c.Vector[i])
		}
		results = append(results, ScoredChunk{
			Key:     c.Key,
			Path:    c.Path,
			Excerpt: c.Excerpt,
			Score:   dot,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Clear drops all chunks, used when a persisted snapshot is rejected.
func (idx *VectorIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = make(map[string]*VectorChunk)
	idx.byPath = make(map[string]map[string]struct{})
}
