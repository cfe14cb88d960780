package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./kgrag.db", cfg.Database.URI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.True(t, cfg.Generator.CircuitBreaker.Enabled)
	assert.InDelta(t, 0.3, cfg.Retrieval.SimilarityThreshold, 1e-9)
	assert.InDelta(t, 0.45, cfg.Policy.QualityThreshold, 1e-9)
	assert.InDelta(t, 0.4, cfg.Retrieval.FusionTextWeight, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ".kgrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
database:
  driver: postgres
  uri: postgres://localhost/kg
retrieval:
  graph_max_depth: 5
`), 0o644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/kg", cfg.Database.URI)
	assert.Equal(t, 5, cfg.Retrieval.GraphMaxDepth)
	// Unset keys keep their defaults.
	assert.Equal(t, "gpt-4o", cfg.Generator.Model)
}

func TestEnvironmentOverrides(t *testing.T) {
	resetViper(t)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_URI", "postgres://db/kg")
	t.Setenv("RECOGNIZER_URL", "http://localhost:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.Generator.APIKey)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/kg", cfg.Database.URI)
	assert.Equal(t, "http://localhost:8080", cfg.Extract.RecognizerURL)
}

func TestEnvDoesNotClobberExplicitKey(t *testing.T) {
	resetViper(t)

	t.Setenv("OPENAI_API_KEY", "sk-env")
	viper.Set("embedding.api_key", "sk-explicit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-explicit", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-env", cfg.Generator.APIKey)
}
