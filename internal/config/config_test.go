package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GOOGLE_GEMINI_API_KEY",
	"PORT",
	"GEMINIGATE_MODEL",
	"GEMINIGATE_TEXT_PROVIDER",
	"GEMINIGATE_UPLOAD_DIR",
	"GEMINIGATE_LOG_FORMAT",
	"GEMINIGATE_LOG_LEVEL",
	"GEMINIGATE_METRICS",
	"GEMINIGATE_SCRATCH_TTL_MINUTES",
	"GEMINIGATE_SWEEP_INTERVAL_MINUTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_GEMINI_API_KEY", "key")

	cfg, err := Load("")
	require.NoError(t, err)

	b := cfg.BasicConfig
	assert.Equal(t, "3000", b.Port)
	assert.Equal(t, ":3000", cfg.Address())
	assert.Equal(t, DefaultModel, b.Model)
	assert.Equal(t, "gemini", b.TextProvider)
	assert.Equal(t, "uploads", b.UploadDir)
	assert.Equal(t, "text", b.LogFormat)
	assert.False(t, b.MetricsEnabled)
	assert.Equal(t, 60, b.ScratchTTLMinutes)
	assert.Equal(t, 10, b.SweepIntervalMinutes)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_GEMINI_API_KEY")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"port": "8081", "gemini_api_key": "file-key", "upload_dir": "scratch", "model": "gemini-1.5-pro"},
		"providers": {"openai": {"api_key": "sk-test", "model": "gpt-4o-mini"}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("GEMINIGATE_TEXT_PROVIDER", "OpenAI")
	t.Setenv("GEMINIGATE_METRICS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	b := cfg.BasicConfig
	assert.Equal(t, "9090", b.Port)
	assert.Equal(t, "file-key", b.GeminiAPIKey)
	assert.Equal(t, "gemini-1.5-pro", b.Model)
	assert.Equal(t, "openai", b.TextProvider)
	assert.Equal(t, filepath.Join(dir, "scratch"), b.UploadDir)
	assert.True(t, b.MetricsEnabled)
	assert.Equal(t, "sk-test", cfg.Providers["openai"].APIKey)
}

func TestValidateTextProvider(t *testing.T) {
	cfg := &Config{BasicConfig: BasicConfig{GeminiAPIKey: "k", Port: "3000", TextProvider: "claude"}}
	require.Error(t, cfg.Validate())

	cfg.Providers = map[string]ProviderConfig{"claude": {APIKey: "c"}}
	require.NoError(t, cfg.Validate())

	cfg.BasicConfig.TextProvider = "mistral"
	require.Error(t, cfg.Validate())

	cfg.BasicConfig.TextProvider = "gemini"
	cfg.BasicConfig.Port = "http"
	require.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_GEMINI_API_KEY", "key")

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
