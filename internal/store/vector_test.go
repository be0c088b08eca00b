package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunking() ChunkingConfig {
	return ChunkingConfig{HeadingLevel: "none", TargetWords: 500, OverlapWords: 100}
}

// unitVec returns a 4-dim unit vector along the given axis.
func unitVec(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

func vecChunk(path string, idx, axis int) *VectorChunk {
	return &VectorChunk{
		Key:        path + "#" + string(rune('0'+idx)),
		Path:       path,
		ChunkIndex: idx,
		Excerpt:    "excerpt",
		Vector:     unitVec(axis),
	}
}

func TestVectorIndex_UpsertAndQuery(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())
	require.NoError(t, idx.Upsert(vecChunk("a.md", 0, 0)))
	require.NoError(t, idx.Upsert(vecChunk("a.md", 1, 1)))
	require.NoError(t, idx.Upsert(vecChunk("b.md", 0, 2)))

	results, err := idx.Query([]float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.md#1", results[0].Key)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestVectorIndex_RejectsDimensionMismatch(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())

	bad := vecChunk("a.md", 0, 0)
	bad.Vector = []float32{1, 0}
	err := idx.Upsert(bad)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Zero(t, idx.Count())

	_, err = idx.Query([]float32{1, 0}, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorIndex_ReplacePathDropsMismatched(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())
	require.NoError(t, idx.Upsert(vecChunk("a.md", 0, 0)))

	bad := vecChunk("a.md", 2, 0)
	bad.Vector = []float32{1}
	kept, err := idx.ReplacePath("a.md", []*VectorChunk{
		vecChunk("a.md", 0, 1),
		bad,
		vecChunk("a.md", 1, 2),
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 2, kept)
	assert.Equal(t, 2, idx.Count())
	assert.Nil(t, idx.Get("a.md#2"))
}

func TestVectorIndex_RemovalCompleteness(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())
	require.NoError(t, idx.Upsert(vecChunk("a.md", 0, 0)))
	require.NoError(t, idx.Upsert(vecChunk("a.md", 1, 1)))
	require.NoError(t, idx.Upsert(vecChunk("b.md", 0, 2)))

	idx.RemoveByPath("a.md")

	assert.Nil(t, idx.Get("a.md#0"))
	assert.Nil(t, idx.Get("a.md#1"))
	assert.False(t, idx.HasPath("a.md"))
	assert.NotNil(t, idx.Get("b.md#0"))
	assert.Equal(t, 1, idx.Count())
	assert.Equal(t, 1, idx.PathCount())

	// Removing an absent path is a no-op.
	idx.RemoveByPath("a.md")
	assert.Equal(t, 1, idx.Count())
}

func TestVectorIndex_QueryLimitAndTiebreak(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())
	// Two chunks with identical vectors: key order breaks the tie.
	require.NoError(t, idx.Upsert(vecChunk("b.md", 0, 0)))
	require.NoError(t, idx.Upsert(vecChunk("a.md", 0, 0)))
	require.NoError(t, idx.Upsert(vecChunk("c.md", 0, 1)))

	results, err := idx.Query(unitVec(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a.md#0", results[0].Key)
	assert.Equal(t, "b.md#0", results[1].Key)

	results, err = idx.Query(unitVec(0), 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = idx.Query(unitVec(0), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_Clear(t *testing.T) {
	idx := NewVectorIndex(4, "hash", testChunking())
	require.NoError(t, idx.Upsert(vecChunk("a.md", 0, 0)))

	idx.Clear()

	assert.Zero(t, idx.Count())
	assert.Zero(t, idx.PathCount())
	assert.False(t, idx.HasPath("a.md"))
}
