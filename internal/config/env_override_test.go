package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadClean(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestGeminiKeySelectsProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg := loadClean(t)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
}

func TestGenericKeyOverridesProviderKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CONSERVATORY_API_KEY", "mine")
	cfg := loadClean(t)
	assert.Equal(t, "mine", cfg.LLM.APIKey)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestExplicitProviderWinsOverKeyDetection(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CONSERVATORY_PROVIDER", "openai")
	t.Setenv("CONSERVATORY_MODEL", "gpt-4o-mini")
	t.Setenv("CONSERVATORY_BASE_URL", "http://localhost:8080/v1")
	cfg := loadClean(t)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
}

func TestDataDirAndDatasetOverrides(t *testing.T) {
	t.Setenv("CONSERVATORY_DATA_DIR", "/tmp/cons-test")
	t.Setenv("CONSERVATORY_DATASET", "/tmp/species.yaml")
	t.Setenv("CONSERVATORY_DEBUG", "1")
	cfg := loadClean(t)
	assert.Equal(t, "/tmp/cons-test", cfg.DataDir)
	assert.Equal(t, "/tmp/species.yaml", cfg.Library.DatasetPath)
	assert.True(t, cfg.Logging.Debug)
}

func TestEnvOverridesStillValidated(t *testing.T) {
	t.Setenv("CONSERVATORY_PROVIDER", "cohere")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
