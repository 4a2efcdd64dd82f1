package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindmate/internal/logging"
)

// Client is the interface pipeline stages depend on.
type Client interface {
	// Complete sends the ordered message list to the completion endpoint
	// and returns the generated text.
	Complete(ctx context.Context, messages []Message, model string) (string, error)
}

// ErrNoCredentials is returned before any network I/O when the pool is empty.
var ErrNoCredentials = errors.New("no API credentials configured")

// Advisory is the fixed, user-safe text shown in place of a reply when the
// remote call fails. Callers substitute it for the generation, never the raw
// error.
const Advisory = "I'm having trouble reaching my reasoning service right now. Your words still matter - please try again in a moment."

// OpenRouterClient implements Client against an OpenRouter-compatible
// chat-completions endpoint.
type OpenRouterClient struct {
	pool       *CredentialPool
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy

	siteURL  string // HTTP-Referer header for rankings
	siteName string // X-Title header for rankings

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// OpenRouterConfig holds configuration for the client.
type OpenRouterConfig struct {
	Pool     *CredentialPool
	BaseURL  string
	Timeout  time.Duration
	Retry    RetryPolicy
	SiteURL  string
	SiteName string
}

// DefaultOpenRouterConfig returns sensible defaults.
func DefaultOpenRouterConfig(pool *CredentialPool) OpenRouterConfig {
	return OpenRouterConfig{
		Pool:    pool,
		BaseURL: "https://openrouter.ai/api/v1",
		// Generation latency is unpredictable; the original client allowed
		// three minutes.
		Timeout:  180 * time.Second,
		Retry:    DefaultRetryPolicy(),
		SiteURL:  "https://github.com/IncognitoQuack/Mindmate",
		SiteName: "Mindmate AI Advisor",
	}
}

// NewOpenRouterClient creates a client with default config.
func NewOpenRouterClient(pool *CredentialPool) *OpenRouterClient {
	return NewOpenRouterClientWithConfig(DefaultOpenRouterConfig(pool))
}

// NewOpenRouterClientWithConfig creates a client with custom config.
func NewOpenRouterClientWithConfig(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.Pool == nil {
		cfg.Pool = NewCredentialPool()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.Retry.Attempts() <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &OpenRouterClient{
		pool:     cfg.Pool,
		baseURL:  cfg.BaseURL,
		retry:    cfg.Retry,
		siteURL:  cfg.SiteURL,
		siteName: cfg.SiteName,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		sleep: time.Sleep,
	}
}

// Complete sends the message list and returns the completion text.
//
// Only HTTP 429 triggers a retry: each retry waits the fixed backoff and
// rotates to the next credential in the pool. Any other HTTP error,
// connection error, or malformed response body fails immediately with a
// wrapped error; callers map it to the Advisory string.
func (c *OpenRouterClient) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if c.pool.Empty() {
		logging.APIError("Complete refused: %v", ErrNoCredentials)
		return "", ErrNoCredentials
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	start := time.Now()
	logging.APIDebug("Complete: model=%s messages=%d", model, len(messages))

	jsonData, err := json.Marshal(completionRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts(); attempt++ {
		if attempt > 0 {
			c.sleep(c.retry.Backoff)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.pool.Key(attempt))
		req.Header.Set("HTTP-Referer", c.siteURL)
		req.Header.Set("X-Title", c.siteName)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("request failed: %w", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			logging.Get(logging.CategoryAPI).Warn("Rate limited on attempt %d/%d", attempt+1, c.retry.Attempts())
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var cr completionResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}

		if cr.Error != nil {
			return "", fmt.Errorf("API error: %s", cr.Error.Message)
		}

		if len(cr.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		text := strings.TrimSpace(cr.Choices[0].Message.Content)
		logging.API("Complete: model=%s completed in %v response_len=%d", model, time.Since(start), len(text))
		return text, nil
	}

	logging.APIError("Complete: retries exhausted after %v: %v", time.Since(start), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
