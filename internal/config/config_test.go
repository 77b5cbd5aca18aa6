package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.NotEmpty(t, cfg.Search.TaskKeywords)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/speaknode
http:
  addr: ":9090"
embedding:
  dimensions: 768
search:
  task_keywords: ["chore"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/speaknode", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, []string{"chore"}, cfg.Search.TaskKeywords)
	// Untouched sections keep their defaults.
	assert.NotEmpty(t, cfg.LLM.RouterModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("SPEAKNODE_ADDR", ":7070")
	t.Setenv("SPEAKNODE_EMBED_DIMENSIONS", "512")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 512, cfg.Embedding.Dimensions)
}

func TestLoadRejectsBadDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  dimensions: 0\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
