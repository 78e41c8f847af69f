package interceptor

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hupe1980/agentloop/model"
)

// Default client-side throttle applied when no explicit rate is configured.
const (
	DefaultRequestsPerMinute = 60
	DefaultBurst             = 5
)

// RateLimitOptions configures the client-side model throttle.
type RateLimitOptions struct {
	// RequestsPerMinute is the sustained model-call rate.
	RequestsPerMinute int

	// Burst is the number of calls that may proceed immediately before the
	// sustained rate applies.
	Burst int
}

// RateLimit throttles outbound model calls with a token bucket so a busy
// loop does not trip the provider's server-side limits in the first place.
// Tool calls are not throttled.
type RateLimit struct {
	PassThrough
	limiter *rate.Limiter
}

// NewRateLimit creates the throttle with optional configuration.
func NewRateLimit(optFns ...func(o *RateLimitOptions)) *RateLimit {
	opts := RateLimitOptions{
		RequestsPerMinute: DefaultRequestsPerMinute,
		Burst:             DefaultBurst,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RateLimit{
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), opts.Burst),
	}
}

// InterceptModel waits for bucket capacity before forwarding the call. The
// wait respects context cancellation.
func (r *RateLimit) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return next(ctx)
}
