package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"

	"github.com/inkstone-labs/inkdex/internal/diag"
)

// ModelConfig configures the external model embedding backend.
type ModelConfig struct {
	// Model is the provider-side embedding model identifier.
	Model string
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the provider endpoint (for self-hosted or
	// compatible servers). Empty uses the provider default.
	BaseURL string
	// Dimensions is the expected vector dimension. Provider responses
	// with a different dimension are rejected, not truncated or padded.
	Dimensions int
}

// embeddingsClient is the slice of the provider client the backend uses.
// Narrowed for testability.
type embeddingsClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ModelBackend embeds text via an external provider. The client is lazily
// initialized exactly once; concurrent first callers share a single
// in-flight initialization. Any provider failure falls back to the hash
// embedding at the same dimension and records a diagnostic, so indexing
// never fails outright because the provider is down.
type ModelBackend struct {
	cfg      ModelConfig
	fallback *HashBackend
	recorder *diag.Recorder

	// newClient is swapped in tests.
	newClient func() (embeddingsClient, error)

	initGroup singleflight.Group
	mu        sync.RWMutex
	client    embeddingsClient
	closed    bool
}

// NewModelBackend creates a model embedding backend. The recorder receives
// structured diagnostics for every fallback; it must not be nil.
func NewModelBackend(cfg ModelConfig, recorder *diag.Recorder) *ModelBackend {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	b := &ModelBackend{
		cfg:      cfg,
		fallback: NewHashBackend(cfg.Dimensions),
		recorder: recorder,
	}
	b.newClient = func() (embeddingsClient, error) {
		if b.cfg.APIKey == "" {
			return nil, fmt.Errorf("model backend: no API key configured")
		}
		conf := openai.DefaultConfig(b.cfg.APIKey)
		if b.cfg.BaseURL != "" {
			conf.BaseURL = b.cfg.BaseURL
		}
		return openai.NewClientWithConfig(conf), nil
	}
	return b
}

// initClient returns the memoized client, performing at most one
// initialization across all concurrent callers.
func (b *ModelBackend) initClient() (embeddingsClient, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("model backend is closed")
	}
	if c := b.client; c != nil {
		b.mu.RUnlock()
		return c, nil
	}
	b.mu.RUnlock()

	v, err, _ := b.initGroup.Do("init", func() (any, error) {
		c, err := b.newClient()
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.client = c
		b.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(embeddingsClient), nil
}

// Embed requests an embedding from the provider, falling back to the hash
// embedding on any failure. Empty input yields the zero vector without a
// provider round trip.
func (b *ModelBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, b.cfg.Dimensions), nil
	}

	client, err := b.initClient()
	if err != nil {
		return b.fallbackEmbed(ctx, text, "embed.model.init", err)
	}

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(b.cfg.Model),
		Dimensions: b.cfg.Dimensions,
	})
	if err != nil {
		return b.fallbackEmbed(ctx, text, "embed.model.request", err)
	}
	if len(resp.Data) == 0 {
		return b.fallbackEmbed(ctx, text, "embed.model.response", fmt.Errorf("provider returned no embeddings"))
	}

	vec := resp.Data[0].Embedding
	if len(vec) != b.cfg.Dimensions {
		return b.fallbackEmbed(ctx, text, "embed.model.response",
			fmt.Errorf("dimension mismatch: expected %d, got %d", b.cfg.Dimensions, len(vec)))
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	normalizeInPlace(out)
	return out, nil
}

// fallbackEmbed records the provider failure and serves the deterministic
// hash embedding instead.
func (b *ModelBackend) fallbackEmbed(ctx context.Context, text, location string, cause error) ([]float32, error) {
	if b.recorder != nil {
		b.recorder.Record(diag.KindTransient, location, b.cfg.Model, cause)
	}
	return b.fallback.Embed(ctx, text)
}

// Dimensions returns the embedding dimension.
func (b *ModelBackend) Dimensions() int {
	return b.cfg.Dimensions
}

// Name returns the backend identifier.
func (b *ModelBackend) Name() string {
	return BackendModel
}

// Close releases the provider client.
func (b *ModelBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.client = nil
	return nil
}

var _ Backend = (*ModelBackend)(nil)
