package scheduler

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
)

// ParallelOptions configures the parallel policy.
type ParallelOptions struct {
	// MaxParallel bounds concurrent calls. Zero or negative means one
	// goroutine per call.
	MaxParallel int

	// Logger receives per-call debug lines. Defaults to the no-op logger.
	Logger logging.Logger
}

// Parallel runs a batch concurrently under a semaphore while preserving
// result order. It is an opt-in policy for tool sets that are independent
// and safe to interleave; the default remains Sequential.
type Parallel struct {
	maxParallel int
	logger      logging.Logger
}

// NewParallel creates the concurrent scheduling policy.
func NewParallel(optFns ...func(o *ParallelOptions)) *Parallel {
	opts := ParallelOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Parallel{maxParallel: opts.MaxParallel, logger: opts.Logger}
}

// RunAll implements Scheduler. Results are returned in call order regardless
// of completion order. The returned error is the first aborting failure in
// call order, if any.
func (p *Parallel) RunAll(ctx context.Context, calls []core.FunctionCall, deps Deps) ([]Result, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	if n == 1 {
		res, err := runOne(ctx, calls[0], deps, p.logger)
		results := []Result{res}
		if abortsRun(ctx, err) {
			return results, err
		}
		return results, nil
	}

	maxPar := p.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]Result, n)
	errs := make([]error, n)

	sem := make(chan struct{}, maxPar)
	var wg sync.WaitGroup

	dispatched := 0
	for i := range calls {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		dispatched++

		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[idx] = err
				results[idx] = Result{
					Call:     fc,
					Response: core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: err.Error()},
				}
				return
			}

			results[idx], errs[idx] = runOne(ctx, fc, deps, p.logger)
		}(i, calls[i])
	}

	wg.Wait()

	results = results[:dispatched]
	for _, err := range errs[:dispatched] {
		if abortsRun(ctx, err) {
			return results, err
		}
	}

	if err := ctx.Err(); err != nil && dispatched < n {
		return results, err
	}

	return results, nil
}
