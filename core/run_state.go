package core

import (
	"fmt"
	"sync"
	"time"
)

// TerminationReason explains why a run reached its terminal state. Every
// terminal event carries exactly one of these values.
type TerminationReason string

const (
	ReasonNaturalCompletion TerminationReason = "natural_completion"       // Last model output contained no tool calls
	ReasonIterationLimit    TerminationReason = "iteration_limit_reached"  // The iteration ceiling was hit
	ReasonErrorLimit        TerminationReason = "error_limit_reached"      // Consecutive errors exceeded the limit
	ReasonFatalError        TerminationReason = "fatal_error"              // A fatal or protocol error aborted the run
	ReasonCancelled         TerminationReason = "cancelled"                // The caller cancelled the run
)

// Default ceilings applied when a run is started without explicit limits.
const (
	DefaultMaxIterations = 10
	DefaultErrorLimit    = 3
)

// ErrIterationLimit is returned by BeginIteration once the ceiling is
// reached. The decision policy normally terminates the run before this
// fires; the guard keeps the invariant even for custom deciders.
var ErrIterationLimit = fmt.Errorf("iteration limit reached")

// RunStateOptions configures a new RunState.
type RunStateOptions struct {
	// MaxIterations caps the number of model calls for the run.
	MaxIterations int

	// ErrorLimit caps the number of consecutive failed calls (model or tool)
	// before the run terminates with ReasonErrorLimit.
	ErrorLimit int

	// Metadata seeds the run's metadata map.
	Metadata map[string]any
}

// RunState tracks one agent run's progress. It is mutated by the run's own
// logical task through invariant-preserving helpers: the iteration counter
// never exceeds its maximum and termination latches permanently with the
// first recorded reason. The metadata map is a scratch space for tools
// cooperating within the same run.
type RunState struct {
	mu sync.Mutex

	runID     string
	sessionID string
	agent     string
	startedAt time.Time

	iteration     int
	maxIterations int

	completedTools    []string
	consecutiveErrors int
	errorLimit        int

	terminated bool
	reason     TerminationReason

	metadata map[string]any
}

// RunSnapshot is an immutable copy of a RunState for observers.
type RunSnapshot struct {
	RunID             string            `json:"run_id"`
	SessionID         string            `json:"session_id"`
	Agent             string            `json:"agent"`
	StartedAt         time.Time         `json:"started_at"`
	Iteration         int               `json:"iteration"`
	MaxIterations     int               `json:"max_iterations"`
	CompletedTools    []string          `json:"completed_tools,omitempty"`
	ConsecutiveErrors int               `json:"consecutive_errors"`
	ErrorLimit        int               `json:"error_limit"`
	Terminated        bool              `json:"terminated"`
	Reason            TerminationReason `json:"reason,omitempty"`
}

// NewRunState creates the progress tracker for one run.
func NewRunState(runID, sessionID, agent string, optFns ...func(o *RunStateOptions)) *RunState {
	opts := RunStateOptions{
		MaxIterations: DefaultMaxIterations,
		ErrorLimit:    DefaultErrorLimit,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	meta := make(map[string]any, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	return &RunState{
		runID:         runID,
		sessionID:     sessionID,
		agent:         agent,
		startedAt:     time.Now().UTC(),
		maxIterations: opts.MaxIterations,
		errorLimit:    opts.ErrorLimit,
		metadata:      meta,
	}
}

// RunID returns the run identifier.
func (rs *RunState) RunID() string { return rs.runID }

// SessionID returns the owning conversation identifier.
func (rs *RunState) SessionID() string { return rs.sessionID }

// Agent returns the name of the agent driving this run.
func (rs *RunState) Agent() string { return rs.agent }

// StartedAt returns the UTC creation time of the run.
func (rs *RunState) StartedAt() time.Time { return rs.startedAt }

// Elapsed returns the wall-clock duration since the run started.
func (rs *RunState) Elapsed() time.Duration { return time.Since(rs.startedAt) }

// Iteration returns the number of model calls begun so far.
func (rs *RunState) Iteration() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.iteration
}

// MaxIterations returns the iteration ceiling.
func (rs *RunState) MaxIterations() int { return rs.maxIterations }

// AtIterationLimit reports whether the run has used up its model calls.
func (rs *RunState) AtIterationLimit() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.iteration >= rs.maxIterations
}

// BeginIteration advances the iteration counter. It refuses to advance past
// the maximum, returning ErrIterationLimit instead, so the counter can never
// exceed its ceiling.
func (rs *RunState) BeginIteration() (int, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.iteration >= rs.maxIterations {
		return rs.iteration, fmt.Errorf("iteration %d: %w", rs.iteration, ErrIterationLimit)
	}
	rs.iteration++

	return rs.iteration, nil
}

// AppendCompletedTool records that the named tool finished (successfully or
// not) preserving completion order.
func (rs *RunState) AppendCompletedTool(name string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.completedTools = append(rs.completedTools, name)
}

// CompletedTools returns a copy of the ordered completed tool names.
func (rs *RunState) CompletedTools() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make([]string, len(rs.completedTools))
	copy(out, rs.completedTools)

	return out
}

// RecordFailure increments the consecutive-error counter and returns the new
// count.
func (rs *RunState) RecordFailure() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.consecutiveErrors++

	return rs.consecutiveErrors
}

// RecordSuccess resets the consecutive-error counter.
func (rs *RunState) RecordSuccess() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.consecutiveErrors = 0
}

// ConsecutiveErrors returns the current consecutive-error count.
func (rs *RunState) ConsecutiveErrors() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.consecutiveErrors
}

// ErrorLimit returns the consecutive-error ceiling.
func (rs *RunState) ErrorLimit() int { return rs.errorLimit }

// ErrorLimitExceeded reports whether the consecutive-error count has passed
// the limit.
func (rs *RunState) ErrorLimitExceeded() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.consecutiveErrors > rs.errorLimit
}

// Terminate latches the terminal state. The first call wins: subsequent
// calls never change the recorded reason. It reports whether this call was
// the one that terminated the run.
func (rs *RunState) Terminate(reason TerminationReason) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.terminated {
		return false
	}
	rs.terminated = true
	rs.reason = reason

	return true
}

// IsTerminated reports whether the run has reached its terminal state.
func (rs *RunState) IsTerminated() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.terminated
}

// Reason returns the recorded termination reason (empty until terminated).
func (rs *RunState) Reason() TerminationReason {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.reason
}

// SetMeta stores a metadata value for cross-tool coordination within the
// run.
func (rs *RunState) SetMeta(key string, value any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.metadata[key] = value
}

// Meta returns a metadata value and whether it was present.
func (rs *RunState) Meta(key string) (any, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	v, ok := rs.metadata[key]

	return v, ok
}

// DeleteMeta removes a metadata entry.
func (rs *RunState) DeleteMeta(key string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	delete(rs.metadata, key)
}

// Metadata returns a copy of the run's metadata map.
func (rs *RunState) Metadata() map[string]any {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make(map[string]any, len(rs.metadata))
	for k, v := range rs.metadata {
		out[k] = v
	}

	return out
}

// MetaKeys returns the metadata keys in unspecified order.
func (rs *RunState) MetaKeys() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	keys := make([]string, 0, len(rs.metadata))
	for k := range rs.metadata {
		keys = append(keys, k)
	}

	return keys
}

// Snapshot returns an immutable copy of the run's progress.
func (rs *RunState) Snapshot() RunSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	tools := make([]string, len(rs.completedTools))
	copy(tools, rs.completedTools)

	return RunSnapshot{
		RunID:             rs.runID,
		SessionID:         rs.sessionID,
		Agent:             rs.agent,
		StartedAt:         rs.startedAt,
		Iteration:         rs.iteration,
		MaxIterations:     rs.maxIterations,
		CompletedTools:    tools,
		ConsecutiveErrors: rs.consecutiveErrors,
		ErrorLimit:        rs.errorLimit,
		Terminated:        rs.terminated,
		Reason:            rs.reason,
	}
}
