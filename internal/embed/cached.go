package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of embeddings kept in memory.
// At 256 dimensions * 4 bytes * 2048 entries this is about 2MB.
const DefaultCacheSize = 2048

// CachedBackend wraps a Backend with LRU caching so repeated chunk or
// query text is embedded once. This matters most for the model backend,
// where every miss is a network round trip.
type CachedBackend struct {
	inner Backend
	cache *lru.Cache[string, []float32]
}

// NewCachedBackend creates a cached backend wrapping inner. A size <= 0
// uses DefaultCacheSize.
func NewCachedBackend(inner Backend, size int) *CachedBackend {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedBackend{inner: inner, cache: cache}
}

// cacheKey hashes text together with the backend name so hash and model
// vectors never collide in a shared cache.
func (c *CachedBackend) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding if present, otherwise computes and
// caches it.
func (c *CachedBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// Dimensions returns the embedding dimension (passthrough).
func (c *CachedBackend) Dimensions() int {
	return c.inner.Dimensions()
}

// Name returns the backend identifier (passthrough).
func (c *CachedBackend) Name() string {
	return c.inner.Name()
}

// Close releases the inner backend.
func (c *CachedBackend) Close() error {
	return c.inner.Close()
}

var _ Backend = (*CachedBackend)(nil)
