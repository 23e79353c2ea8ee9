package question

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mansionnet/quizbot/internal/domain"
)

// TokenBudget gates outbound Question Source calls. Acquire blocks until a
// token is available or the bounded wait elapses.
type TokenBudget interface {
	Acquire(ctx context.Context) error
}

// RateBudget is the shared token bucket for the Question Source. One instance
// serves all channels; rate.Limiter is internally synchronized so callers
// never hold a shared lock while waiting.
type RateBudget struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewRateBudget creates a budget refilling at refillPerSecond tokens with the
// given burst capacity. Waits longer than maxWait fail with ErrRateLimited.
func NewRateBudget(refillPerSecond float64, capacity int, maxWait time.Duration) *RateBudget {
	return &RateBudget{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		maxWait: maxWait,
	}
}

func (b *RateBudget) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()

	if err := b.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("token wait exceeded %v: %w", b.maxWait, domain.ErrRateLimited)
	}
	return nil
}
