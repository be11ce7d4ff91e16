package llm

import (
	"context"
	"fmt"
)

// Waiter admits one request for a key, blocking as needed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimited throttles Invoke calls of the wrapped provider, keyed by provider name
type RateLimited struct {
	Provider
	limiter Waiter
}

// WithRateLimit wraps p so every Invoke first waits on limiter
func WithRateLimit(p Provider, limiter Waiter) *RateLimited {
	return &RateLimited{Provider: p, limiter: limiter}
}

// Invoke waits for the provider's bucket, then calls through
func (r *RateLimited) Invoke(ctx context.Context, system, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx, r.Name()); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.Provider.Invoke(ctx, system, prompt)
}
