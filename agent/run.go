package agent

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// RunOptions configures one run of an agent.
type RunOptions struct {
	// RunID overrides the generated run identifier.
	RunID string

	// SessionID names the owning conversation. Nested runs started through
	// AsTool inherit the parent's session id.
	SessionID string

	// History seeds the conversation with prior messages; the run's input
	// is appended after it.
	History []core.Content

	// Metadata seeds the run state's metadata map.
	Metadata map[string]any
}

// Run is the handle of one agent run. The loop itself executes on its own
// goroutine; the handle exposes the observable side: the ordered event
// stream, resolution of suspended approval requests, cancellation and
// completion.
//
// The caller must consume events, or resolve approvals by other means, while
// the run executes: a suspended approval request nobody answers fails with a
// timeout after its configured wait.
type Run struct {
	id        string
	sessionID string
	agent     string

	state  *core.RunState
	coord  *core.Coordinator
	cancel context.CancelFunc

	errCh chan error
	done  chan struct{}

	// Written once by the loop goroutine before done closes.
	err     error
	history []core.Content
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// SessionID returns the owning conversation identifier.
func (r *Run) SessionID() string { return r.sessionID }

// Agent returns the name of the agent driving the run.
func (r *Run) Agent() string { return r.agent }

// Events returns the ordered stream of run events. The channel closes after
// the terminal event has been delivered. Repeated calls return the same
// channel; the stream supports a single consumer.
func (r *Run) Events(ctx context.Context) <-chan core.Event {
	return r.coord.Events(ctx)
}

// Err returns a buffered channel carrying the run-aborting error, if any.
// Policy terminations, meaning natural completion and the iteration and
// error limits, produce no error; the terminal event carries the reason.
func (r *Run) Err() <-chan error { return r.errCh }

// Resolve delivers an external decision or value for the given correlation
// id, unblocking the suspended call that registered it. Resolutions route
// through the root coordinator, so approvals raised by nested runs resolve
// here too.
func (r *Run) Resolve(correlationID string, value any) {
	r.coord.Resolve(correlationID, value)
}

// Approve resolves an approval request affirmatively.
func (r *Run) Approve(correlationID string) {
	r.Resolve(correlationID, core.ApprovalDecision{Approved: true})
}

// Deny resolves an approval request negatively with an optional reason.
func (r *Run) Deny(correlationID, reason string) {
	r.Resolve(correlationID, core.ApprovalDecision{Approved: false, Reason: reason})
}

// Cancel stops the run. The loop observes the cancellation at its next
// suspension point and terminates with the cancellation reason.
func (r *Run) Cancel() { r.cancel() }

// Done closes once the loop has finished and the terminal event is emitted.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx is done, returning the
// run-aborting error, nil for policy terminations.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the run's progress so far.
func (r *Run) Snapshot() core.RunSnapshot { return r.state.Snapshot() }

// History returns the full conversation once the run has finished, nil
// while it is still executing.
func (r *Run) History() []core.Content {
	select {
	case <-r.done:
		return r.history
	default:
		return nil
	}
}
