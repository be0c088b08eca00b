package store

import (
	"sync"
	"time"
)

// FileState is the per-document bookkeeping used to decide whether a
// reindex is needed. It is deleted when the document is removed or
// excluded.
type FileState struct {
	Hash       uint32    `json:"hash"`
	ChunkCount int       `json:"chunkCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FileStates is a concurrency-safe map of path to FileState, shared by
// the vector and lexical workers and persisted with the lexical
// snapshot.
type FileStates struct {
	mu sync.RWMutex
	m  map[string]FileState
}

// NewFileStates creates an empty state map.
func NewFileStates() *FileStates {
	return &FileStates{m: make(map[string]FileState)}
}

// Get returns the state for path, if any.
func (s *FileStates) Get(path string) (FileState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[path]
	return st, ok
}

// Set records the state for path.
func (s *FileStates) Set(path string, st FileState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[path] = st
}

// Delete removes the state for path. Deleting an absent path is a no-op.
func (s *FileStates) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, path)
}

// Len returns the number of tracked documents.
func (s *FileStates) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Paths returns the tracked document paths in no particular order.
func (s *FileStates) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a copy of the full map for persistence.
func (s *FileStates) Snapshot() map[string]FileState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]FileState, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// Replace swaps in the given map wholesale, used when loading a
// persisted snapshot. A nil map clears all state.
func (s *FileStates) Replace(m map[string]FileState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]FileState, len(m))
	for k, v := range m {
		s.m[k] = v
	}
}

// Clear removes all tracked state.
func (s *FileStates) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]FileState)
}
