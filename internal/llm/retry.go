package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider decorates a Provider with exponential backoff on transient
// failures. Rate limits and unavailability retry up to the attempt budget; a
// schema-invalid response retries once; context errors and token-limit
// truncation never retry.
type RetryProvider struct {
	inner       Provider
	maxAttempts int
	initialWait time.Duration
	maxWait     time.Duration
	multiplier  float64
}

// WithRetry wraps a Provider with retry behavior from cfg. The config must
// already be finalized.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{
		inner:       p,
		maxAttempts: cfg.MaxAttempts,
		initialWait: cfg.InitialWaitDuration(),
		maxWait:     cfg.MaxWaitDuration(),
		multiplier:  cfg.Multiplier,
	}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	invalidRetried := false

	for attempt := range r.maxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(err, &invalidRetried) {
			return nil, err
		}

		if attempt == r.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}

	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}

	// One retry for invalid output: a second identical failure means the
	// prompt or schema is wrong, not the transport.
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	return true
}

func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.initialWait) * math.Pow(r.multiplier, float64(attempt))
	if wait > float64(r.maxWait) {
		wait = float64(r.maxWait)
	}

	// ±20% jitter keeps concurrent retries from stampeding.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
