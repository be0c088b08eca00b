package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// SnapshotVersion is the on-disk schema version for both index files.
const SnapshotVersion = 1

// ErrSnapshotMismatch marks a persisted snapshot whose version or config
// disagrees with the running configuration. The caller must discard the
// snapshot and rebuild from the corpus, never merge it.
var ErrSnapshotMismatch = errors.New("snapshot does not match running configuration")

// VectorSnapshot is the persisted form of a VectorIndex.
type VectorSnapshot struct {
	Version  int            `json:"version"`
	Dim      int            `json:"dim"`
	Backend  string         `json:"backend"`
	Chunking ChunkingConfig `json:"chunking"`
	Chunks   []*VectorChunk `json:"chunks"`
}

// LexicalSnapshot is the persisted form of a LexicalIndex plus the
// shared per-file state.
type LexicalSnapshot struct {
	Version     int                      `json:"version"`
	Avgdl       float64                  `json:"avgdl"`
	TotalChunks int                      `json:"totalChunks"`
	FileState   map[string]FileState     `json:"fileState"`
	Chunking    ChunkingConfig           `json:"chunking"`
	Chunks      map[string]*LexicalChunk `json:"chunks"`
	Postings    map[string][]Posting     `json:"postings"`
}

// BuildSnapshot serializes the index state. Chunks are sorted by key so
// repeated snapshots of the same state are byte-identical.
func (idx *VectorIndex) BuildSnapshot() *VectorSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	chunks := make([]*VectorChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Key < chunks[j].Key })

	return &VectorSnapshot{
		Version:  SnapshotVersion,
		Dim:      idx.dim,
		Backend:  idx.backend,
		Chunking: idx.chunking,
		Chunks:   chunks,
	}
}

// LoadSnapshot replaces the index contents from a snapshot after
// validating it against the running configuration. On any mismatch the
// index is left untouched and ErrSnapshotMismatch is returned.
func (idx *VectorIndex) LoadSnapshot(s *VectorSnapshot) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSnapshotMismatch, s.Version, SnapshotVersion)
	}
	if s.Dim != idx.dim {
		return fmt.Errorf("%w: dim %d, want %d", ErrSnapshotMismatch, s.Dim, idx.dim)
	}
	if s.Backend != idx.backend {
		return fmt.Errorf("%w: backend %q, want %q", ErrSnapshotMismatch, s.Backend, idx.backend)
	}
	if s.Chunking != idx.chunking {
		return fmt.Errorf("%w: chunking %+v, want %+v", ErrSnapshotMismatch, s.Chunking, idx.chunking)
	}
	for _, c := range s.Chunks {
		if c == nil || c.Key == "" || c.Path == "" {
			return fmt.Errorf("%w: malformed chunk entry", ErrSnapshotMismatch)
		}
		if len(c.Vector) != idx.dim {
			return fmt.Errorf("%w: chunk %s has dim %d, want %d",
				ErrSnapshotMismatch, c.Key, len(c.Vector), idx.dim)
		}
	}

	idx.chunks = make(map[string]*VectorChunk, len(s.Chunks))
	idx.byPath = make(map[string]map[string]struct{})
	for _, c := range s.Chunks {
		idx.insertLocked(c)
	}
	return nil
}

// BuildSnapshot serializes the index state together with the shared
// per-file state map.
func (idx *LexicalIndex) BuildSnapshot(files *FileStates) *LexicalSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	chunks := make(map[string]*LexicalChunk, len(idx.chunks))
	for k, c := range idx.chunks {
		chunks[k] = c
	}
	postings := make(map[string][]Posting, len(idx.postings))
	for term, plist := range idx.postings {
		postings[term] = append([]Posting(nil), plist...)
	}

	var fileState map[string]FileState
	if files != nil {
		fileState = files.Snapshot()
	} else {
		fileState = map[string]FileState{}
	}

	return &LexicalSnapshot{
		Version:     SnapshotVersion,
		Avgdl:       idx.avgDocLenLocked(),
		TotalChunks: len(idx.chunks),
		FileState:   fileState,
		Chunking:    idx.chunking,
		Chunks:      chunks,
		Postings:    postings,
	}
}

// LoadSnapshot replaces the index contents and the shared file-state map
// from a snapshot after validating it. On any mismatch both are left
// untouched and ErrSnapshotMismatch is returned.
func (idx *LexicalIndex) LoadSnapshot(s *LexicalSnapshot, files *FileStates) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSnapshotMismatch, s.Version, SnapshotVersion)
	}
	if s.Chunking != idx.chunking {
		return fmt.Errorf("%w: chunking %+v, want %+v", ErrSnapshotMismatch, s.Chunking, idx.chunking)
	}
	if s.TotalChunks != len(s.Chunks) {
		return fmt.Errorf("%w: totalChunks %d disagrees with %d stored chunks",
			ErrSnapshotMismatch, s.TotalChunks, len(s.Chunks))
	}
	for key, c := range s.Chunks {
		if c == nil || c.Key != key || c.Path == "" {
			return fmt.Errorf("%w: malformed chunk entry %q", ErrSnapshotMismatch, key)
		}
	}

	idx.chunks = make(map[string]*LexicalChunk, len(s.Chunks))
	idx.byPath = make(map[string]map[string]struct{})
	idx.totalLen = 0
	for key, c := range s.Chunks {
		idx.chunks[key] = c
		keys, ok := idx.byPath[c.Path]
		if !ok {
			keys = make(map[string]struct{})
			idx.byPath[c.Path] = keys
		}
		keys[key] = struct{}{}
		idx.totalLen += int64(c.Len)
	}
	idx.postings = make(map[string][]Posting, len(s.Postings))
	for term, plist := range s.Postings {
		idx.postings[term] = append([]Posting(nil), plist...)
	}
	if files != nil {
		files.Replace(s.FileState)
	}
	return nil
}

// DecodeVectorSnapshot parses a persisted vector index file. Parse
// failures are structural: the caller discards the file and rebuilds.
func DecodeVectorSnapshot(data []byte) (*VectorSnapshot, error) {
	var s VectorSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode vector snapshot: %w", err)
	}
	return &s, nil
}

// DecodeLexicalSnapshot parses a persisted lexical index file.
func DecodeLexicalSnapshot(data []byte) (*LexicalSnapshot, error) {
	var s LexicalSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode lexical snapshot: %w", err)
	}
	return &s, nil
}
