package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "./supportflow.db", cfg.Storage.DatabasePath)
	assert.True(t, cfg.KnowledgeBase.Watch)
	assert.InDelta(t, 0.7, cfg.Pipeline.ConfidenceThreshold, 1e-9)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gemini-1.5-pro
server:
  addr: ":9090"
pipeline:
  confidence_threshold: 0.85
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.InDelta(t, 0.85, cfg.Pipeline.ConfidenceThreshold, 1e-9)
	// Untouched sections keep defaults.
	assert.Equal(t, "./supportflow.db", cfg.Storage.DatabasePath)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not: a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUPPORTFLOW_API_KEY", "sk-test")
	t.Setenv("SUPPORTFLOW_MODEL", "gemini-2.5-flash")
	t.Setenv("SUPPORTFLOW_ADDR", ":7777")
	t.Setenv("SUPPORTFLOW_DB", "/tmp/sf.db")
	t.Setenv("SUPPORTFLOW_CONFIDENCE_THRESHOLD", "0.55")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "/tmp/sf.db", cfg.Storage.DatabasePath)
	assert.InDelta(t, 0.55, cfg.Pipeline.ConfidenceThreshold, 1e-9)
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	t.Setenv("SUPPORTFLOW_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gk-test", cfg.LLM.APIKey)
}
