package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mindmate configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Remote completion endpoint configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Knowledge base configuration
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Conversation settings
	Chat ChatConfig `yaml:"chat"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the remote chat-completion endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`

	// Primary credential, required for any completion call.
	APIKey string `yaml:"api_key"`

	// Secondary credential. Used for insight generation when set, and as
	// the rotation target when the primary is rate-limited.
	FallbackAPIKey string `yaml:"fallback_api_key"`

	// Model identifiers per role
	ChatModel     string `yaml:"chat_model"`
	ClassifyModel string `yaml:"classify_model"`
	InsightModel  string `yaml:"insight_model"`

	Timeout      string `yaml:"timeout"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryBackoff string `yaml:"retry_backoff"`
}

// EmbeddingConfig configures the sentence embedding backend.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama, genai

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
}

// KnowledgeConfig configures the knowledge base index.
type KnowledgeConfig struct {
	// Directory of JSON documents. A missing directory falls back to the
	// built-in default corpus.
	DataDir string `yaml:"data_dir"`

	// Number of snippets retrieved per turn.
	TopK int `yaml:"top_k"`
}

// ChatConfig configures per-turn conversation behavior.
type ChatConfig struct {
	// Number of prior messages included in each request.
	HistoryWindow int `yaml:"history_window"`

	// Maximum length of a single journal entry, in runes.
	JournalEntryLimit int `yaml:"journal_entry_limit"`

	// Severity at or above which the one-time supportive warning surfaces.
	WarningThreshold int `yaml:"warning_threshold"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mindmate",
		Version: "1.0.0",

		LLM: LLMConfig{
			BaseURL:       "https://openrouter.ai/api/v1",
			ChatModel:     "google/gemma-3-27b-it:free",
			ClassifyModel: "google/gemma-2-9b-it:free",
			InsightModel:  "deepseek/deepseek-r1-0528:free",
			Timeout:       "180s",
			MaxRetries:    3,
			RetryBackoff:  "2s",
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},

		Knowledge: KnowledgeConfig{
			DataDir: "mental_health_kb",
			TopK:    4,
		},

		Chat: ChatConfig{
			HistoryWindow:     5,
			JournalEntryLimit: 600,
			WarningThreshold:  8,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "mindmate.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY_FALLBACK"); key != "" {
		c.LLM.FallbackAPIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" {
			c.Embedding.Provider = "genai"
		}
	}
	if url := os.Getenv("OLLAMA_ENDPOINT"); url != "" {
		c.Embedding.OllamaEndpoint = url
	}
	if dir := os.Getenv("MINDMATE_KB_DIR"); dir != "" {
		c.Knowledge.DataDir = dir
	}
}

// GetLLMTimeout returns the completion call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 180 * time.Second
	}
	return d
}

// GetRetryBackoff returns the rate-limit retry backoff as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.LLM.RetryBackoff)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set OPENROUTER_API_KEY)")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.Knowledge.TopK <= 0 {
		return fmt.Errorf("knowledge.top_k must be positive")
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("chat.history_window must be positive")
	}
	return nil
}

// HasCredentials reports whether a primary credential is configured.
func (c *Config) HasCredentials() bool {
	return c.LLM.APIKey != ""
}

// KeyFingerprint returns a short display fingerprint of a credential.
// The credential itself is never echoed once set.
func KeyFingerprint(key string) string {
	if key == "" {
		return "(not set)"
	}
	sum := sha256.Sum256([]byte(key))
	return "sha256:" + hex.EncodeToString(sum[:4])
}
