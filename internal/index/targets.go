package index

import (
	"context"
	"fmt"

	"github.com/inkstone-labs/inkdex/internal/chunk"
	"github.com/inkstone-labs/inkdex/internal/diag"
	"github.com/inkstone-labs/inkdex/internal/embed"
	"github.com/inkstone-labs/inkdex/internal/store"
	"github.com/inkstone-labs/inkdex/internal/worker"
)

// vectorTarget adapts the vector index to the worker's write surface:
// chunk, embed, replace wholesale.
type vectorTarget struct {
	index    *store.VectorIndex
	embedder embed.Backend
	opts     chunk.Options
	recorder *diag.Recorder
	onTitle  func(path, title string)
}

var _ worker.Target = (*vectorTarget)(nil)

func (t *vectorTarget) HasChunks(path string) bool {
	return t.index.HasPath(path)
}

func (t *vectorTarget) RemovePath(path string) {
	t.index.RemoveByPath(path)
}

// ReindexPath chunks and embeds the document. Per-chunk embedding
// failures are tolerated: the survivors are indexed and the failure
// recorded. Only when every chunk fails does the document error out so
// the worker leaves its file state for a retry.
func (t *vectorTarget) ReindexPath(ctx context.Context, path, text string) (int, error) {
	spans := chunk.Split(text, t.opts)
	if len(spans) == 0 {
		// Zero-content documents carry no retrievable signal.
		t.index.RemoveByPath(path)
		return 0, nil
	}
	if t.onTitle != nil {
		t.onTitle(path, chunk.Title(text))
	}

	chunks := make([]*store.VectorChunk, 0, len(spans))
	var lastErr error
	for i, span := range spans {
		vec, err := t.embedder.Embed(ctx, span.Text)
		if err != nil {
			lastErr = err
			t.recorder.Record(diag.KindTransient, "index.vector.embed", chunk.Key(path, i), err)
			continue
		}
		chunks = append(chunks, &store.VectorChunk{
			Key:        chunk.Key(path, i),
			Path:       path,
			ChunkIndex: i,
			StartWord:  span.StartWord,
			EndWord:    span.EndWord,
			TextHash:   chunk.HashText(span.Text),
			Excerpt:    chunk.Excerpt(span.Text),
			Vector:     vec,
		})
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("all %d chunks failed to embed: %w", len(spans), lastErr)
	}

	kept, err := t.index.ReplacePath(path, chunks)
	if err != nil {
		t.recorder.Record(diag.KindTransient, "index.vector.upsert", path, err)
	}
	if kept == 0 {
		return 0, fmt.Errorf("all %d chunks rejected by index: %w", len(chunks), err)
	}
	return kept, nil
}

// lexicalTarget adapts the lexical index: chunk, tokenize, replace
// wholesale. Tokenization cannot fail, so there is no partial-failure
// path here.
type lexicalTarget struct {
	index   *store.LexicalIndex
	opts    chunk.Options
	onTitle func(path, title string)
}

var _ worker.Target = (*lexicalTarget)(nil)

func (t *lexicalTarget) HasChunks(path string) bool {
	return t.index.HasPath(path)
}

func (t *lexicalTarget) RemovePath(path string) {
	t.index.RemoveByPath(path)
}

func (t *lexicalTarget) ReindexPath(_ context.Context, path, text string) (int, error) {
	spans := chunk.Split(text, t.opts)
	if len(spans) == 0 {
		t.index.RemoveByPath(path)
		return 0, nil
	}
	if t.onTitle != nil {
		t.onTitle(path, chunk.Title(text))
	}

	docs := make([]store.LexicalDoc, 0, len(spans))
	for i, span := range spans {
		docs = append(docs, store.LexicalDoc{
			Chunk: &store.LexicalChunk{
				Key:        chunk.Key(path, i),
				Path:       path,
				ChunkIndex: i,
				StartWord:  span.StartWord,
				EndWord:    span.EndWord,
				TextHash:   chunk.HashText(span.Text),
				Excerpt:    chunk.Excerpt(span.Text),
			},
			Text: span.Text,
		})
	}
	return t.index.ReplacePath(path, docs), nil
}
