package model

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// Fallback chains a primary model with a standby. When the primary fails
// before producing any response the same request is replayed against the
// standby; once the primary has streamed output the turn is committed to it
// and errors pass through unchanged. Cancellation never triggers a failover.
type Fallback struct {
	primary Model
	standby Model
}

// NewFallback wires a standby model behind the primary.
func NewFallback(primary, standby Model) *Fallback {
	return &Fallback{primary: primary, standby: standby}
}

// Generate implements Model.
func (f *Fallback) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		forwarded, err := forward(ctx, f.primary, req, out)
		if err == nil {
			return
		}
		if forwarded || core.IsCancelled(err) || ctx.Err() != nil {
			errCh <- err
			return
		}
		if _, err := forward(ctx, f.standby, req, out); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// forward drains one model's stream into out, reporting whether any response
// was forwarded and the first error observed.
func forward(ctx context.Context, m Model, req Request, out chan<- Response) (bool, error) {
	respCh, errCh := m.Generate(ctx, req)

	var firstErr error
	forwarded := false

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return forwarded, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			select {
			case out <- resp:
				forwarded = true
			case <-ctx.Done():
				return forwarded, ctx.Err()
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return forwarded, firstErr
}

// Info reports the primary model's metadata.
func (f *Fallback) Info() Info { return f.primary.Info() }
