package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// rateLimited wraps a Provider so completions never exceed a steady budget.
type rateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited caps p at perMinute completions per minute with a burst of
// one. perMinute <= 0 returns p unchanged.
func NewRateLimited(p Provider, perMinute float64) Provider {
	if p == nil || perMinute <= 0 {
		return p
	}
	every := time.Duration(float64(time.Minute) / perMinute)
	return &rateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(every), 1),
	}
}

func (r *rateLimited) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for %s rate limit: %w", r.Name(), err)
	}
	return r.Provider.Complete(ctx, prompt, opts)
}
