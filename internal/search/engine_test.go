package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkstone-labs/inkdex/internal/store"
)

// fakeEmbedder returns canned vectors by text.
type fakeEmbedder struct {
	dim  int
	vecs map[string][]float32
	err  error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }
func (f *fakeEmbedder) Name() string    { return "hash" }
func (f *fakeEmbedder) Close() error    { return nil }

func chunking() store.ChunkingConfig {
	return store.ChunkingConfig{HeadingLevel: "none", TargetWords: 500, OverlapWords: 100}
}

func newTestEngine(t *testing.T) (*Engine, *store.LexicalIndex, *store.VectorIndex, *fakeEmbedder) {
	t.Helper()
	lex := store.NewLexicalIndex(chunking())
	vec := store.NewVectorIndex(4, "hash", chunking())
	emb := &fakeEmbedder{dim: 4, vecs: map[string][]float32{}}
	titles := map[string]string{"a.md": "Alpha", "b.md": "Beta"}
	eng := NewEngine(lex, vec, emb, func(p string) string { return titles[p] }, nil)
	return eng, lex, vec, emb
}

func addVec(t *testing.T, vec *store.VectorIndex, key, path string, v []float32) {
	t.Helper()
	require.NoError(t, vec.Upsert(&store.VectorChunk{Key: key, Path: path, Excerpt: "vec excerpt", Vector: v}))
}

func TestEngine_FusesBothSources(t *testing.T) {
	eng, lex, vec, emb := newTestEngine(t)

	lex.Add(&store.LexicalChunk{Key: "a.md#0", Path: "a.md", Excerpt: "lighthouse excerpt"}, "lighthouse keeper story")
	lex.Add(&store.LexicalChunk{Key: "b.md#0", Path: "b.md", Excerpt: "harbor excerpt"}, "harbor at dusk")
	addVec(t, vec, "a.md#0", "a.md", []float32{1, 0, 0, 0})
	addVec(t, vec, "c.md#0", "c.md", []float32{0, 1, 0, 0})
	emb.vecs["lighthouse"] = []float32{1, 0, 0, 0}

	results, err := eng.Search(context.Background(), "lighthouse", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "a.md", results[0].Path, "hit from both indexes ranks first")
	assert.Equal(t, "both", results[0].Source)
	assert.Contains(t, results[0].ReasonTags, ReasonLexicalMatch)
	assert.Contains(t, results[0].ReasonTags, ReasonVectorMatch)
	assert.Equal(t, "Alpha", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9, "top hit normalizes to 1")
}

func TestEngine_LexicalOnlyAndVectorOnly(t *testing.T) {
	eng, lex, vec, emb := newTestEngine(t)

	lex.Add(&store.LexicalChunk{Key: "a.md#0", Path: "a.md", Excerpt: "x"}, "unique lexical needle")
	addVec(t, vec, "b.md#0", "b.md", []float32{0, 0, 1, 0})
	emb.vecs["needle unique lexical"] = []float32{0, 0, 1, 0}

	results, err := eng.Search(context.Background(), "needle unique lexical", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPath := map[string]Result{}
	for _, r := range results {
		byPath[r.Path] = r
	}
	assert.Equal(t, "lexical", byPath["a.md"].Source)
	assert.Equal(t, []string{ReasonLexicalMatch}, byPath["a.md"].ReasonTags)
	assert.Equal(t, "vector", byPath["b.md"].Source)
	assert.Equal(t, []string{ReasonVectorMatch}, byPath["b.md"].ReasonTags)
}

func TestEngine_EmptyIndexes(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	results, err := eng.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_EmbedErrorPropagates(t *testing.T) {
	eng, lex, _, emb := newTestEngine(t)
	lex.Add(&store.LexicalChunk{Key: "a.md#0", Path: "a.md", Excerpt: "x"}, "some text")
	emb.err = errors.New("provider down")

	_, err := eng.Search(context.Background(), "some text", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestEngine_MMRTagOnlyWhenPoolExceedsLimit(t *testing.T) {
	eng, lex, _, _ := newTestEngine(t)
	for _, doc := range []struct{ key, path, text string }{
		{"a.md#0", "a.md", "falcon soared over cliffs"},
		{"b.md#0", "b.md", "falcon nested in ruins"},
		{"c.md#0", "c.md", "falcon hunted at dawn"},
	} {
		lex.Add(&store.LexicalChunk{Key: doc.key, Path: doc.path, Excerpt: doc.text}, doc.text)
	}

	results, err := eng.Search(context.Background(), "falcon", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, r.ReasonTags, ReasonMMRDiversified)
	}

	results, err = eng.Search(context.Background(), "falcon", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotContains(t, r.ReasonTags, ReasonMMRDiversified)
	}
}
