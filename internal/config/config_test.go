package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "hash", cfg.Embeddings.Backend)
	assert.Equal(t, 256, cfg.Embeddings.Dimensions)
	assert.Equal(t, 500, cfg.Chunking.TargetWords)
	assert.Equal(t, 100, cfg.Chunking.OverlapWords)
	assert.Equal(t, "none", cfg.Chunking.HeadingLevel)
	assert.Equal(t, 10, cfg.Search.Limit)
}

func TestLoad_VaultFileOverridesDefaults(t *testing.T) {
	vault := t.TempDir()
	yaml := `
version: 1
chunking:
  heading_level: h2
  target_words: 800
embeddings:
  backend: model
  model: text-embedding-3-small
vault:
  exclude:
    - "archive"
    - "*.tmp.md"
`
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(vault)
	require.NoError(t, err)

	assert.Equal(t, "h2", cfg.Chunking.HeadingLevel)
	assert.Equal(t, 800, cfg.Chunking.TargetWords)
	assert.Equal(t, 100, cfg.Chunking.OverlapWords, "unset values keep defaults")
	assert.Equal(t, "model", cfg.Embeddings.Backend)
	assert.Equal(t, []string{"archive", "*.tmp.md"}, cfg.Vault.Exclude)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yml"),
		[]byte("embeddings:\n  backend: model\n"), 0o644))

	t.Setenv("INKDEX_EMBED_BACKEND", "hash")
	t.Setenv("INKDEX_EMBED_DIMENSIONS", "128")
	t.Setenv("INKDEX_LOG_LEVEL", "debug")

	cfg, err := Load(vault)
	require.NoError(t, err)

	assert.Equal(t, "hash", cfg.Embeddings.Backend)
	assert.Equal(t, 128, cfg.Embeddings.Dimensions)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"),
		[]byte("embeddings:\n  backend: quantum\n"), 0o644))

	_, err := Load(vault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")

	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"),
		[]byte("chunking:\n  heading_level: h9\n"), 0o644))
	_, err = Load(vault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heading_level")

	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"),
		[]byte("chunking: ["), 0o644))
	_, err = Load(vault)
	assert.Error(t, err, "malformed yaml")

	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"),
		[]byte("embeddings:\n  dimensions: -1\n"), 0o644))
	_, err = Load(vault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")

	require.NoError(t, os.WriteFile(filepath.Join(vault, ".inkdex.yaml"),
		[]byte("search:\n  limit: -5\n"), 0o644))
	_, err = Load(vault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestValidate_ZeroMeansDefault(t *testing.T) {
	cfg := Default()
	cfg.Embeddings.Dimensions = 0
	cfg.Search.Limit = 0
	assert.NoError(t, cfg.Validate())
}

func TestAPIKey_FromEnvOnly(t *testing.T) {
	t.Setenv("INKDEX_API_KEY", "sk-test")
	cfg := Default()
	assert.Equal(t, "sk-test", cfg.APIKey())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".inkdex.yaml")
	cfg := Default()
	cfg.Chunking.TargetWords = 750
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, 750, loaded.Chunking.TargetWords)
}
