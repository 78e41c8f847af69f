package interceptor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Default retry tuning. MaxAttempts counts the first call, so 3 means at
// most two re-attempts.
const (
	DefaultMaxAttempts       = 3
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultRateLimitBackoff  = 1 * time.Second
	DefaultMaxBackoff        = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultJitter            = 0.1
)

// RetryOptions configures the retry interceptor.
type RetryOptions struct {
	// MaxAttempts is the total number of attempts including the first call.
	MaxAttempts int

	// InitialBackoff is the delay before the first re-attempt of a
	// transient failure. Subsequent delays grow by BackoffMultiplier.
	InitialBackoff time.Duration

	// RateLimitBackoff replaces InitialBackoff when the failure is
	// provider throttling and no explicit retry-after hint was supplied.
	RateLimitBackoff time.Duration

	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor between attempts.
	BackoffMultiplier float64

	// Jitter is the random variation factor applied to each delay
	// (0.1 means +/-10%). Zero disables jitter.
	Jitter float64
}

// Retry re-attempts failed model and tool calls whose errors are classified
// retryable. Fatal, protocol and timeout failures pass through on the first
// occurrence, as does context cancellation. Throttling failures wait out the
// provider's retry-after hint when one is present and otherwise back off
// from a longer base delay than ordinary transient failures.
//
// When all attempts fail the last error is returned unchanged so callers
// can still classify it.
type Retry struct {
	opts RetryOptions
}

// NewRetry creates the retry interceptor with optional configuration.
func NewRetry(optFns ...func(o *RetryOptions)) *Retry {
	opts := RetryOptions{
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		RateLimitBackoff:  DefaultRateLimitBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		Jitter:            DefaultJitter,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &Retry{opts: opts}
}

// InterceptModel retries the model-call continuation.
func (r *Retry) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	var res *model.Result

	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = next(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// InterceptTool retries the function-call continuation.
func (r *Retry) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	var res any

	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = next(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (r *Retry) do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if core.IsCancelled(lastErr) || !core.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == r.opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(lastErr, attempt)):
		}
	}

	return lastErr
}

// backoff computes the delay before re-attempt number attempt+1. A provider
// retry-after hint wins outright; otherwise the delay grows exponentially
// from the kind-specific base, capped and jittered.
func (r *Retry) backoff(err error, attempt int) time.Duration {
	if hint, ok := core.RetryAfterHint(err); ok {
		return hint
	}

	base := r.opts.InitialBackoff
	if core.KindOf(err) == core.KindRateLimit {
		base = r.opts.RateLimitBackoff
	}

	backoff := float64(base) * math.Pow(r.opts.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(r.opts.MaxBackoff) {
		backoff = float64(r.opts.MaxBackoff)
	}

	if r.opts.Jitter > 0 {
		backoff += backoff * r.opts.Jitter * (rand.Float64()*2 - 1)
	}

	return time.Duration(backoff)
}
