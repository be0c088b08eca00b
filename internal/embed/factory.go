package embed

import (
	"fmt"

	"github.com/inkstone-labs/inkdex/internal/diag"
)

// Options selects and configures an embedding backend.
type Options struct {
	// Backend is "hash" or "model".
	Backend string
	// Dimensions is the vector dimension for both backends.
	Dimensions int
	// Model, APIKey, BaseURL configure the model backend.
	Model   string
	APIKey  string
	BaseURL string
	// CacheSize is the LRU entry count; 0 uses the default.
	CacheSize int
}

// New constructs the configured backend wrapped in an LRU cache.
func New(opts Options, recorder *diag.Recorder) (Backend, error) {
	var inner Backend
	switch opts.Backend {
	case BackendHash, "":
		inner = NewHashBackend(opts.Dimensions)
	case BackendModel:
		inner = NewModelBackend(ModelConfig{
			Model:      opts.Model,
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Dimensions: opts.Dimensions,
		}, recorder)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", opts.Backend)
	}
	return NewCachedBackend(inner, opts.CacheSize), nil
}
