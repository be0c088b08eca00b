package store

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexChunk(path string, idx int) *LexicalChunk {
	return &LexicalChunk{
		Key:        fmt.Sprintf("%s#%d", path, idx),
		Path:       path,
		ChunkIndex: idx,
		Excerpt:    "excerpt",
	}
}

func TestLexicalIndex_SearchRanksMatches(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "the lighthouse keeper walked along the shore every evening")
	idx.Add(lexChunk("b.md", 0), "lighthouse lighthouse lighthouse stood against the storm")
	idx.Add(lexChunk("c.md", 0), "a quiet village with no coastline at all")

	results := idx.Search("lighthouse", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "b.md#0", results[0].Key, "higher term frequency ranks first")
	assert.Equal(t, "a.md#0", results[1].Key)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLexicalIndex_BM25Monotonicity(t *testing.T) {
	// Adding an occurrence of the query term while holding length
	// constant must not decrease the chunk's score.
	base := "storm clouds gathered above harbor walls tonight slowly"
	more := "storm clouds gathered above harbor walls storm slowly"

	score := func(text string) float64 {
		idx := NewLexicalIndex(testChunking())
		idx.Add(lexChunk("doc.md", 0), text)
		idx.Add(lexChunk("other.md", 0), "completely unrelated prose about gardens and roses")
		results := idx.Search("storm", 10)
		require.NotEmpty(t, results)
		require.Equal(t, "doc.md#0", results[0].Key)
		return results[0].Score
	}

	assert.GreaterOrEqual(t, score(more), score(base))
}

func TestLexicalIndex_RemovalLeavesTombstones(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "falcon circled the tower")
	idx.Add(lexChunk("b.md", 0), "falcon dove toward the river")

	idx.RemoveByPath("a.md")

	// Metadata is gone immediately.
	assert.Nil(t, idx.Get("a.md#0"))
	assert.False(t, idx.HasPath("a.md"))
	assert.Equal(t, 1, idx.Count())

	// The postings list still holds the tombstone, but scoring skips it.
	results := idx.Search("falcon", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "b.md#0", results[0].Key)
}

func TestLexicalIndex_ReindexedKeyUsesNewestPosting(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "falcon falcon falcon falcon")
	idx.Add(lexChunk("b.md", 0), "falcon falcon perched high")

	// Reindex a.md with a single occurrence. The old posting for the
	// same key remains as a tombstone; the newer one must win.
	idx.ReplacePath("a.md", []LexicalDoc{
		{Chunk: lexChunk("a.md", 0), Text: "falcon alone over water"},
	})

	results := idx.Search("falcon", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "b.md#0", results[0].Key, "tf=2 must outrank the reindexed tf=1 chunk")
}

func TestLexicalIndex_CompactPostings(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "ember glow faded")
	idx.Add(lexChunk("b.md", 0), "ember sparks rising")
	before := idx.TermCount()
	require.Greater(t, before, 0)

	idx.RemoveByPath("a.md")
	removed := idx.CompactPostings()
	assert.Greater(t, removed, 0)

	// Terms unique to a.md are gone entirely; shared terms keep only
	// b.md's entry.
	assert.Less(t, idx.TermCount(), before)
	results := idx.Search("ember", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "b.md#0", results[0].Key)

	// Compacting an already-compact index removes nothing.
	assert.Zero(t, idx.CompactPostings())
}

func TestLexicalIndex_QueryTermCap(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "needle hidden deep inside haystack")

	// A query of many distinct junk terms plus the real one beyond the
	// cap: the real term is within the first MaxQueryTerms so it counts.
	terms := make([]string, 0, MaxQueryTerms+8)
	terms = append(terms, "needle")
	for i := 0; i < MaxQueryTerms+7; i++ {
		terms = append(terms, fmt.Sprintf("junkterm%02d", i))
	}
	results := idx.Search(strings.Join(terms, " "), 10)
	require.Len(t, results, 1)

	// Same junk terms but the real term past the cap: no match.
	past := append(terms[1:], "needle")
	results = idx.Search(strings.Join(past, " "), 10)
	assert.Empty(t, results)
}

func TestLexicalIndex_ResultCap(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	for i := 0; i < 20; i++ {
		idx.Add(lexChunk(fmt.Sprintf("doc%02d.md", i), 0), "shared keyword appears everywhere")
	}

	assert.Len(t, idx.Search("keyword", 5), 5)
	assert.Len(t, idx.Search("keyword", 100), 20)
	assert.Empty(t, idx.Search("keyword", 0))
}

func TestLexicalIndex_EmptyAndStopwordQueries(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	idx.Add(lexChunk("a.md", 0), "meaningful content here")

	assert.Empty(t, idx.Search("", 10))
	assert.Empty(t, idx.Search("the and with", 10), "stop-word-only query matches nothing")
	assert.Empty(t, idx.Search("ab", 10), "short tokens are dropped")
}

func TestLexicalIndex_AvgDocLen(t *testing.T) {
	idx := NewLexicalIndex(testChunking())
	assert.Zero(t, idx.AvgDocLen())

	idx.Add(lexChunk("a.md", 0), "crimson banner torn") // 3 tokens
	idx.Add(lexChunk("b.md", 0), "silver river")        // 2 tokens
	assert.InDelta(t, 2.5, idx.AvgDocLen(), 1e-9)

	idx.RemoveByPath("a.md")
	assert.InDelta(t, 2.0, idx.AvgDocLen(), 1e-9)
}
