package embed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkstone-labs/inkdex/internal/diag"
)

// fakeEmbeddingsClient returns canned responses for CreateEmbeddings.
type fakeEmbeddingsClient struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fakeEmbeddingsClient) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	return openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: f.vec}},
	}, nil
}

func newTestModelBackend(t *testing.T, client embeddingsClient, clientErr error) (*ModelBackend, *diag.Recorder) {
	t.Helper()
	rec := diag.NewRecorder(16, nil)
	b := NewModelBackend(ModelConfig{Model: "test-embed", Dimensions: 4}, rec)
	b.newClient = func() (embeddingsClient, error) {
		if clientErr != nil {
			return nil, clientErr
		}
		return client, nil
	}
	return b, rec
}

func TestModelBackend_NormalizesProviderVector(t *testing.T) {
	client := &fakeEmbeddingsClient{vec: []float32{3, 0, 4, 0}}
	b, rec := newTestModelBackend(t, client, nil)

	v, err := b.Embed(context.Background(), "some prose")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[2]), 1e-6)
	assert.InDelta(t, 1.0, vectorNorm(v), 1e-6)
	assert.Zero(t, rec.Total())
}

func TestModelBackend_EmptyInputSkipsProvider(t *testing.T) {
	client := &fakeEmbeddingsClient{vec: []float32{1, 0, 0, 0}}
	b, _ := newTestModelBackend(t, client, nil)

	v, err := b.Embed(context.Background(), "   \n ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), v)
	assert.Zero(t, client.calls.Load())
}

func TestModelBackend_FallsBackOnRequestError(t *testing.T) {
	client := &fakeEmbeddingsClient{err: errors.New("provider unavailable")}
	b, rec := newTestModelBackend(t, client, nil)

	v, err := b.Embed(context.Background(), "the lighthouse keeper")
	require.NoError(t, err)

	// Fallback is the deterministic hash embedding at the same dimension.
	want, err := NewHashBackend(4).Embed(context.Background(), "the lighthouse keeper")
	require.NoError(t, err)
	assert.Equal(t, want, v)

	entries := rec.Recent(1)
	require.Len(t, entries, 1)
	assert.Equal(t, diag.KindTransient, entries[0].Kind)
	assert.Equal(t, "embed.model.request", entries[0].Location)
}

func TestModelBackend_FallsBackOnInitError(t *testing.T) {
	b, rec := newTestModelBackend(t, nil, errors.New("no API key"))

	v, err := b.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	require.Len(t, rec.Recent(1), 1)
	assert.Equal(t, "embed.model.init", rec.Recent(1)[0].Location)
}

func TestModelBackend_RejectsWrongDimension(t *testing.T) {
	client := &fakeEmbeddingsClient{vec: []float32{1, 2, 3}} // expects 4
	b, rec := newTestModelBackend(t, client, nil)

	v, err := b.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	require.NotZero(t, rec.Total())
	assert.Contains(t, rec.Recent(1)[0].Message, "dimension mismatch")
}

func TestModelBackend_SingleInitAcrossConcurrentCallers(t *testing.T) {
	var inits atomic.Int32
	client := &fakeEmbeddingsClient{vec: []float32{1, 0, 0, 0}}
	rec := diag.NewRecorder(4, nil)
	b := NewModelBackend(ModelConfig{Model: "test-embed", Dimensions: 4}, rec)
	b.newClient = func() (embeddingsClient, error) {
		inits.Add(1)
		return client, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Embed(context.Background(), "concurrent text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load())
}

func TestCachedBackend_HitsSkipInner(t *testing.T) {
	client := &fakeEmbeddingsClient{vec: []float32{0, 1, 0, 0}}
	b, _ := newTestModelBackend(t, client, nil)
	cached := NewCachedBackend(b, 8)

	ctx := context.Background()
	v1, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestFactory(t *testing.T) {
	rec := diag.NewRecorder(4, nil)

	b, err := New(Options{Backend: BackendHash, Dimensions: 32}, rec)
	require.NoError(t, err)
	assert.Equal(t, BackendHash, b.Name())
	assert.Equal(t, 32, b.Dimensions())

	b, err = New(Options{Backend: BackendModel, Dimensions: 16, Model: "m"}, rec)
	require.NoError(t, err)
	assert.Equal(t, BackendModel, b.Name())

	_, err = New(Options{Backend: "quantum"}, rec)
	assert.Error(t, err)
}
