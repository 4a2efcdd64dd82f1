package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string, keys ...string) *OpenRouterClient {
	t.Helper()
	c := NewOpenRouterClientWithConfig(OpenRouterConfig{
		Pool:    NewCredentialPool(keys...),
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
		Retry:   RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond},
	})
	c.sleep = func(time.Duration) {}
	return c
}

func completionBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
	return string(b)
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		w.Write([]byte(completionBody("  hello there  ")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "key-one")
	client.siteURL = "https://example.test"
	client.siteName = "Test Suite"

	text, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
	require.NoError(t, err)

	assert.Equal(t, "hello there", text, "response should be trimmed")
	assert.Equal(t, "Bearer key-one", gotAuth)
	assert.Equal(t, "https://example.test", gotReferer)
	assert.Equal(t, "Test Suite", gotTitle)
}

func TestCompleteRefusesWithoutCredentials(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Zero(t, requests, "no network call may happen without credentials")
}

func TestCompleteRateLimitRotatesCredentials(t *testing.T) {
	var auths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		if len(auths) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody("recovered")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "primary", "fallback")

	text, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	require.Len(t, auths, 2)
	assert.Equal(t, "Bearer primary", auths[0])
	assert.Equal(t, "Bearer fallback", auths[1], "retry after 429 must use the alternate credential")
}

func TestCompleteRateLimitExhaustsRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "key-one")

	_, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, requests, "MaxRetries=2 allows three attempts total")
}

func TestCompleteNonRateLimitErrorsFailImmediately(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errPart string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"unauthorized", http.StatusUnauthorized, "bad key", "status 401"},
		{"malformed json body", http.StatusOK, "{not json", "failed to parse response"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "no completion returned"},
		{"api-level error", http.StatusOK, `{"error":{"message":"model overloaded"}}`, "model overloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, "key-one")

			_, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Equal(t, 1, requests, "non-429 failures must not retry")
		})
	}
}

func TestCompleteConnectionErrorFailsImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL, "key-one")

	_, err := client.Complete(context.Background(), []Message{User("hi")}, "test-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestCompleteEmptyMessages(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0", "key-one")
	_, err := client.Complete(context.Background(), nil, "test-model")
	assert.Error(t, err)
}
