package store

import (
	"math"
	"sort"
	"sync"
)

// BM25 parameters and query-shape limits.
const (
	BM25K1 = 1.2
	BM25B  = 0.75

	// MaxQueryTerms caps the deduplicated query term count.
	MaxQueryTerms = 24

	// MaxSearchResults caps the ranked result list regardless of the
	// caller's limit.
	MaxSearchResults = 400
)

// LexicalDoc pairs a chunk's metadata with its raw text for indexing.
type LexicalDoc struct {
	Chunk *LexicalChunk
	Text  string
}

// LexicalIndex is an inverted BM25 index: per-term postings lists of
// (chunkKey, termFrequency) plus per-chunk token lengths and a running
// corpus-length sum.
//
// Removal leaves postings entries behind as tombstones: deleting a path
// drops its chunk metadata and length contribution immediately, while
// stale postings are filtered at query time by checking chunk existence.
// This trades memory under churn for O(chunk-terms)-free deletes;
// CompactPostings reclaims the space on demand.
type LexicalIndex struct {
	mu       sync.RWMutex
	chunking ChunkingConfig
	chunks   map[string]*LexicalChunk
	byPath   map[string]map[string]struct{}
	postings map[string][]Posting
	totalLen int64
}

// NewLexicalIndex creates an empty lexical index.
func NewLexicalIndex(chunking ChunkingConfig) *LexicalIndex {
	return &LexicalIndex{
		chunking: chunking,
		chunks:   make(map[string]*LexicalChunk),
		byPath:   make(map[string]map[string]struct{}),
		postings: make(map[string][]Posting),
	}
}

// Add tokenizes text, records the chunk's token length, and appends its
// term frequencies to the postings lists.
func (idx *LexicalIndex) Add(chunk *LexicalChunk, text string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(chunk, text)
}

// ReplacePath atomically removes all chunks for path and indexes the
// given replacements. Returns the number of chunks inserted.
func (idx *LexicalIndex) ReplacePath(path string, docs []LexicalDoc) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removePathLocked(path)
	for _, d := range docs {
		idx.addLocked(d.Chunk, d.Text)
	}
	return len(docs)
}

// RemoveByPath removes all chunk metadata for path. Postings entries are
// left as tombstones and skipped during scoring.
func (idx *LexicalIndex) RemoveByPath(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removePathLocked(path)
}

func (idx *LexicalIndex) addLocked(chunk *LexicalChunk, text string) {
	tokens := TokenizeText(text)
	chunk.Len = len(tokens)

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	for term, count := range tf {
		idx.postings[term] = append(idx.postings[term], Posting{Key: chunk.Key, TF: count})
	}

	idx.chunks[chunk.Key] = chunk
	keys, ok := idx.byPath[chunk.Path]
	if !ok {
		keys = make(map[string]struct{})
		idx.byPath[chunk.Path] = keys
	}
	keys[chunk.Key] = struct{}{}
	idx.totalLen += int64(chunk.Len)
}

func (idx *LexicalIndex) removePathLocked(path string) {
	for key := range idx.byPath[path] {
		if c, ok := idx.chunks[key]; ok {
			idx.totalLen -= int64(c.Len)
			delete(idx.chunks, key)
		}
	}
	delete(idx.byPath, path)
}

// Get returns the chunk metadata stored under key, or nil.
func (idx *LexicalIndex) Get(key string) *LexicalChunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.chunks[key]
}

// HasPath reports whether any chunks are indexed for path.
func (idx *LexicalIndex) HasPath(path string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPath[path]) > 0
}

// Count returns the number of live chunks.
func (idx *LexicalIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// PathCount returns the number of documents with at least one chunk.
func (idx *LexicalIndex) PathCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPath)
}

// TermCount returns the number of postings lists, tombstoned terms
// included.
func (idx *LexicalIndex) TermCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings)
}

// AvgDocLen returns the current average chunk token length.
func (idx *LexicalIndex) AvgDocLen() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.avgDocLenLocked()
}

func (idx *LexicalIndex) avgDocLenLocked() float64 {
	if len(idx.chunks) == 0 {
		return 0
	}
	return float64(idx.totalLen) / float64(len(idx.chunks))
}

// Search scores live chunks against the query with BM25 and returns the
// ranked list, capped at min(MaxSearchResults, limit). Query terms are
// deduplicated and capped at MaxQueryTerms. Tombstoned postings are
// skipped; when a chunk key was reindexed, the newest posting for it
// wins.
func (idx *LexicalIndex) Search(query string, limit int) []ScoredChunk {
	terms := TokenizeQuery(query, MaxQueryTerms)
	if len(terms) == 0 || limit <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.chunks)
	if n == 0 {
		return nil
	}
	avgdl := idx.avgDocLenLocked()
	if avgdl <= 0 {
		avgdl = 1
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		plist := idx.postings[term]
		if len(plist) == 0 {
			continue
		}

		// Postings are append-ordered, so for a reindexed key the last
		// entry carries the current term frequency.
		live := make(map[string]int, len(plist))
		for _, p := range plist {
			if _, ok := idx.chunks[p.Key]; ok {
				live[p.Key] = p.TF
			}
		}
		df := len(live)
		if df == 0 {
			continue
		}

		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for key, tf := range live {
			c := idx.chunks[key]
			tfF := float64(tf)
			denom := tfF + BM25K1*(1-BM25B+BM25B*float64(c.Len)/avgdl)
			scores[key] += idf * tfF * (BM25K1 + 1) / denom
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]ScoredChunk, 0, len(scores))
	for key, score := range scores {
		c := idx.chunks[key]
		results = append(results, ScoredChunk{
			Key:     key,
			Path:    c.Path,
			Excerpt: c.Excerpt,
			Score:   score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})

	resultCap := limit
	if resultCap > MaxSearchResults {
		resultCap = MaxSearchResults
	}
	if len(results) > resultCap {
		results = results[:resultCap]
	}
	return results
}

// CompactPostings rewrites every postings list keeping only the newest
// entry per live chunk, and drops terms whose lists empty out. Returns
// the number of postings entries removed.
func (idx *LexicalIndex) CompactPostings() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for term, plist := range idx.postings {
		lastIdx := make(map[string]int, len(plist))
		for i, p := range plist {
			if _, ok := idx.chunks[p.Key]; ok {
				lastIdx[p.Key] = i
			}
		}

		kept := plist[:0]
		for i, p := range plist {
			if j, ok := lastIdx[p.Key]; ok && j == i {
				kept = append(kept, p)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(idx.postings, term)
			continue
		}
		idx.postings[term] = kept
	}
	return removed
}

// Clear drops all chunks and postings, used when a persisted snapshot is
// rejected.
func (idx *LexicalIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = make(map[string]*LexicalChunk)
	idx.byPath = make(map[string]map[string]struct{})
	idx.postings = make(map[string][]Posting)
	idx.totalLen = 0
}
