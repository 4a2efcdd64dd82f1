package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "google/gemma-3-27b-it:free", cfg.LLM.ChatModel)
	assert.Equal(t, "google/gemma-2-9b-it:free", cfg.LLM.ClassifyModel)
	assert.Equal(t, "deepseek/deepseek-r1-0528:free", cfg.LLM.InsightModel)
	assert.Equal(t, 4, cfg.Knowledge.TopK)
	assert.Equal(t, 5, cfg.Chat.HistoryWindow)
	assert.Equal(t, 8, cfg.Chat.WarningThreshold)
	assert.Equal(t, 180*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 2*time.Second, cfg.GetRetryBackoff())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.ChatModel, cfg.LLM.ChatModel)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.Knowledge.TopK = 7
	cfg.Chat.HistoryWindow = 9
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", loaded.LLM.APIKey)
	assert.Equal(t, 7, loaded.Knowledge.TopK)
	assert.Equal(t, 9, loaded.Chat.HistoryWindow)

	t.Run("file is user-only", func(t *testing.T) {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-primary")
	t.Setenv("OPENROUTER_API_KEY_FALLBACK", "env-fallback")
	t.Setenv("MINDMATE_KB_DIR", "/tmp/kb")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-primary", cfg.LLM.APIKey)
	assert.Equal(t, "env-fallback", cfg.LLM.FallbackAPIKey)
	assert.Equal(t, "/tmp/kb", cfg.Knowledge.DataDir)
	assert.True(t, cfg.HasCredentials())
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad top k", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		cfg.Knowledge.TopK = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestKeyFingerprint(t *testing.T) {
	t.Run("unset key", func(t *testing.T) {
		assert.Equal(t, "(not set)", KeyFingerprint(""))
	})

	t.Run("never echoes the key", func(t *testing.T) {
		fp := KeyFingerprint("sk-secret-value")
		assert.NotContains(t, fp, "secret")
		assert.Contains(t, fp, "sha256:")
		assert.Equal(t, fp, KeyFingerprint("sk-secret-value"))
		assert.NotEqual(t, fp, KeyFingerprint("sk-other-value"))
	})
}
