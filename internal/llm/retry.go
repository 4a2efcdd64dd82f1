package llm

import (
	"time"
)

// =============================================================================
// RETRY POLICY & CREDENTIAL POOL
// =============================================================================

// RetryPolicy bounds the rate-limit retry loop. Only HTTP 429 responses are
// retried; every retry rotates to the next credential in the pool. The policy
// is a plain value so it can be unit-tested independent of the transport.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy returns sensible defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff:    2 * time.Second,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// CredentialPool holds the configured API credentials in rotation order.
// Empty credentials are dropped at construction.
type CredentialPool struct {
	keys []string
}

// NewCredentialPool builds a pool from the given keys, skipping blanks.
func NewCredentialPool(keys ...string) *CredentialPool {
	pool := &CredentialPool{}
	for _, k := range keys {
		if k != "" {
			pool.keys = append(pool.keys, k)
		}
	}
	return pool
}

// Empty reports whether no credential is configured.
func (p *CredentialPool) Empty() bool {
	return len(p.keys) == 0
}

// Size returns the number of configured credentials.
func (p *CredentialPool) Size() int {
	return len(p.keys)
}

// Key returns the credential for the given attempt number, rotating through
// the pool so a retry after a rate limit uses the alternate credential when
// one exists.
func (p *CredentialPool) Key(attempt int) string {
	if len(p.keys) == 0 {
		return ""
	}
	if attempt < 0 {
		attempt = 0
	}
	return p.keys[attempt%len(p.keys)]
}
