package scheduler

import (
	"context"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
)

// SequentialOptions configures the sequential policy.
type SequentialOptions struct {
	// Logger receives per-call debug lines. Defaults to the no-op logger.
	Logger logging.Logger
}

// Sequential runs calls strictly in model order, one at a time. An aborting
// failure (fatal, protocol, cancellation) stops the batch; later calls are
// never entered.
type Sequential struct {
	logger logging.Logger
}

// NewSequential creates the default scheduling policy.
func NewSequential(optFns ...func(o *SequentialOptions)) *Sequential {
	opts := SequentialOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Sequential{logger: opts.Logger}
}

// RunAll implements Scheduler.
func (s *Sequential) RunAll(ctx context.Context, calls []core.FunctionCall, deps Deps) ([]Result, error) {
	results := make([]Result, 0, len(calls))

	for _, fc := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := runOne(ctx, fc, deps, s.logger)
		results = append(results, res)

		if abortsRun(ctx, err) {
			return results, err
		}
	}

	return results, nil
}
