package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/session"
)

var (
	// ErrAgentNotFound reports a run against an unregistered agent name.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrRunNotFound reports an operation against an unknown or already
	// finished run.
	ErrRunNotFound = errors.New("run not found")
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns bounds simultaneously executing runs; Run blocks
	// until a slot frees or its context is done. Zero means unbounded.
	MaxConcurrentRuns int

	// Sessions persists conversation history across runs. Defaults to an
	// in-memory store.
	Sessions session.Store

	// Logger receives run lifecycle logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Runner manages many concurrent agent runs: a registry of named agents, the
// table of active runs, session persistence, and the routing of approval
// resolutions to the run that raised them. Public methods are safe for
// concurrent use.
type Runner struct {
	sessions session.Store
	logger   logging.Logger
	sem      chan struct{}

	mu     sync.RWMutex
	agents map[string]*agent.Agent

	runsMu sync.RWMutex
	runs   map[string]*agent.Run
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Sessions: session.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		sessions: opts.Sessions,
		logger:   opts.Logger,
		agents:   make(map[string]*agent.Agent),
		runs:     make(map[string]*agent.Run),
	}

	if opts.MaxConcurrentRuns > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	return r
}

// Register adds agents to the registry under their names. Registering a name
// twice replaces the earlier agent.
func (r *Runner) Register(agents ...*agent.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range agents {
		r.agents[a.Name()] = a
	}
}

// GetAgent retrieves a registered agent by name.
func (r *Runner) GetAgent(name string) (*agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	return a, ok
}

// Run starts an asynchronous run of the named agent inside the given session,
// seeding it with the session's stored history. An empty sessionID starts a
// fresh conversation under a generated id. The returned handle's event stream
// belongs to the caller; the runner itself only waits for completion, then
// persists the run's history back into the session.
//
// Caller options are applied before the runner seeds the session id and
// history, which the runner owns.
func (r *Runner) Run(ctx context.Context, agentName, sessionID string, input core.Content, optFns ...func(o *agent.RunOptions)) (*agent.Run, error) {
	run, _, err := r.start(ctx, agentName, sessionID, input, optFns)
	return run, err
}

// RunSync executes a run to completion and returns the ordered events it
// produced. The session is persisted before RunSync returns, so sequential
// calls against the same session observe each other's history. A run-aborting
// error is returned alongside the events observed up to the failure; policy
// terminations return a nil error with the reason on the terminal event.
//
// Approval-gated tools suspend the run until someone answers; with RunSync
// blocking the caller, resolutions have to arrive through Approve/Deny from
// another goroutine.
func (r *Runner) RunSync(ctx context.Context, agentName, sessionID string, input core.Content, optFns ...func(o *agent.RunOptions)) ([]core.Event, error) {
	run, settled, err := r.start(ctx, agentName, sessionID, input, optFns)
	if err != nil {
		return nil, err
	}

	var events []core.Event
	for ev := range run.Events(ctx) {
		events = append(events, ev)
	}

	err = run.Wait(ctx)

	select {
	case <-settled:
	case <-ctx.Done():
	}

	return events, err
}

// start launches the run and its finalizer. The settled channel closes once
// the session has been persisted and the bookkeeping cleared.
func (r *Runner) start(ctx context.Context, agentName, sessionID string, input core.Content, optFns []func(o *agent.RunOptions)) (*agent.Run, <-chan struct{}, error) {
	a, ok := r.GetAgent(agentName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentName)
	}

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if sessionID == "" {
		sessionID = core.NewID()
	}

	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		r.release()
		return nil, nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	run := a.Run(ctx, input, func(o *agent.RunOptions) {
		for _, fn := range optFns {
			fn(o)
		}

		o.SessionID = sess.ID
		o.History = sess.History()
	})

	r.runsMu.Lock()
	r.runs[run.ID()] = run
	r.runsMu.Unlock()

	r.logger.Debug("run started",
		"agent", agentName,
		"run_id", run.ID(),
		"session_id", sess.ID,
	)

	settled := make(chan struct{})
	go r.finalize(run, sess, settled)

	return run, settled, nil
}

// finalize waits for the run to finish, persists its history into the
// session, and clears the bookkeeping. Aborted runs persist too: the
// conversation up to the failure keeps its value for the next turn.
func (r *Runner) finalize(run *agent.Run, sess *session.Session, settled chan<- struct{}) {
	defer close(settled)

	<-run.Done()

	r.runsMu.Lock()
	delete(r.runs, run.ID())
	r.runsMu.Unlock()

	r.release()

	history := run.History()
	if len(history) == 0 {
		return
	}

	sess.SetMessages(history)

	// The run context is typically dead here; persistence gets its own.
	if err := r.sessions.Save(context.Background(), sess); err != nil {
		r.logger.Error("session save failed",
			"session_id", sess.ID,
			"run_id", run.ID(),
			"error", err.Error(),
		)
	}
}

func (r *Runner) release() {
	if r.sem != nil {
		<-r.sem
	}
}

// GetRun returns the handle of an active run. Finished runs are evicted from
// the table once their session is persisted.
func (r *Runner) GetRun(runID string) (*agent.Run, bool) {
	r.runsMu.RLock()
	defer r.runsMu.RUnlock()

	run, ok := r.runs[runID]
	return run, ok
}

// ActiveRuns returns the sorted ids of currently executing runs.
func (r *Runner) ActiveRuns() []string {
	r.runsMu.RLock()
	defer r.runsMu.RUnlock()

	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Cancel stops an active run by id.
func (r *Runner) Cancel(runID string) error {
	run, ok := r.GetRun(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	run.Cancel()

	return nil
}

// Resolve routes an external decision or value to the run that raised the
// request. Requests bubbled up from nested runs resolve through the root
// run's id.
func (r *Runner) Resolve(runID, correlationID string, value any) error {
	run, ok := r.GetRun(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	run.Resolve(correlationID, value)

	return nil
}

// Approve resolves an approval request affirmatively.
func (r *Runner) Approve(runID, correlationID string) error {
	return r.Resolve(runID, correlationID, core.ApprovalDecision{Approved: true})
}

// Deny resolves an approval request negatively with an optional reason.
func (r *Runner) Deny(runID, correlationID, reason string) error {
	return r.Resolve(runID, correlationID, core.ApprovalDecision{Approved: false, Reason: reason})
}

// Session returns the stored session snapshot for the given id.
func (r *Runner) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return r.sessions.Get(ctx, sessionID)
}
