package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/scheduler"
)

// Run starts one asynchronous run of the agent on the given input and
// returns its handle immediately. The loop establishes itself as the root of
// the invocation tree unless the context already carries one; nested runs
// started through AsTool bubble their events to that root instead.
func (a *Agent) Run(ctx context.Context, input core.Content, optFns ...func(o *RunOptions)) *Run {
	opts := RunOptions{
		RunID:     core.NewID(),
		SessionID: core.NewID(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	state := core.NewRunState(opts.RunID, opts.SessionID, a.name, func(o *core.RunStateOptions) {
		o.MaxIterations = a.maxIterations
		o.ErrorLimit = a.errorLimit
		o.Metadata = opts.Metadata
	})

	var coord *core.Coordinator

	if root, nested := core.RootFrom(ctx); nested {
		coord = core.NewCoordinator(func(o *core.CoordinatorOptions) {
			o.Root = root.Coordinator
		})
	} else {
		coord = core.NewCoordinator()
		ctx = core.WithRoot(ctx, &core.Root{Agent: a.name, RunID: opts.RunID, Coordinator: coord})
	}

	runCtx, cancel := context.WithCancel(ctx)

	history := make([]core.Content, 0, len(opts.History)+1)
	history = append(history, opts.History...)

	if len(input.Parts) > 0 {
		history = append(history, input)
	}

	r := &Run{
		id:        opts.RunID,
		sessionID: opts.SessionID,
		agent:     a.name,
		state:     state,
		coord:     coord,
		cancel:    cancel,
		errCh:     make(chan error, 1),
		done:      make(chan struct{}),
	}

	lr := &loopRun{
		agent:   a,
		state:   state,
		coord:   coord,
		history: history,
		logger:  a.logger,
	}

	go func() {
		err := lr.run(runCtx)

		cancel()
		coord.Close()

		if err != nil {
			r.errCh <- err
		}

		r.err = err
		r.history = lr.history
		close(r.done)
	}()

	return r
}

// loopRun is the mutable working set of one executing run. All fields are
// owned by the loop goroutine.
type loopRun struct {
	agent   *Agent
	state   *core.RunState
	coord   *core.Coordinator
	history []core.Content
	logger  logging.Logger
}

// run drives the decision loop to termination. The returned error is non-nil
// only for run-aborting failures; the terminal event is emitted on every
// path.
func (lr *loopRun) run(ctx context.Context) (err error) {
	a := lr.agent

	defer func() {
		reason := lr.state.Reason()
		if reason == "" {
			// A path that forgot to latch; classify from the error.
			reason = core.ReasonNaturalCompletion

			if err != nil {
				if core.IsCancelled(err) {
					reason = core.ReasonCancelled
				} else {
					reason = core.ReasonFatalError
				}
			}

			lr.state.Terminate(reason)
		}

		errMsg := ""
		if err != nil && reason == core.ReasonFatalError {
			errMsg = err.Error()
		}

		lr.coord.Emit(core.NewTerminationEvent(lr.state.RunID(), a.name, reason, errMsg))

		lr.logger.Info("run terminated",
			"agent", a.name,
			"run_id", lr.state.RunID(),
			"reason", string(reason),
			"iterations", lr.state.Iteration(),
			"error", err != nil,
		)
	}()

	for {
		if cerr := ctx.Err(); cerr != nil {
			lr.state.Terminate(core.ReasonCancelled)
			return cerr
		}

		decision := a.decider.Decide(lr.history, a.tools, lr.state)

		switch decision.Kind {
		case core.DecideTerminate:
			lr.state.Terminate(decision.Reason)
			return nil

		case core.DecideCallModel:
			if err := lr.callModel(ctx); err != nil {
				return err
			}

		case core.DecideExecuteTools:
			if err := lr.executeTools(ctx, decision.Calls); err != nil {
				return err
			}

		default:
			lr.state.Terminate(core.ReasonFatalError)
			return core.NewProtocol("agent.loop", fmt.Sprintf("unknown decision kind %q", decision.Kind))
		}
	}
}

// callModel performs one model turn, appends the assistant message on
// success, and feeds non-fatal failures into the consecutive-error counter.
// A non-nil return aborts the run.
func (lr *loopRun) callModel(ctx context.Context) error {
	a := lr.agent

	if _, err := lr.state.BeginIteration(); err != nil {
		// Only a non-standard decider pushes past the ceiling; latch the
		// limit and let the next decision end the run.
		lr.state.Terminate(core.ReasonIterationLimit)
		return nil
	}

	res, err := lr.turn(ctx)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			lr.state.Terminate(core.ReasonCancelled)
			return cerr
		}

		if core.IsCancelled(err) {
			lr.state.Terminate(core.ReasonCancelled)
			return err
		}

		switch core.KindOf(err) {
		case core.KindFatal, core.KindProtocol:
			lr.state.Terminate(core.ReasonFatalError)
			return err
		}

		// Transient, rate-limit or timeout after the retry interceptor gave
		// up: count it and let the decision policy end the run once the
		// streak passes the limit.
		count := lr.state.RecordFailure()

		lr.logger.Warn("model call failed",
			"agent", a.name,
			"run_id", lr.state.RunID(),
			"consecutive_errors", count,
			"error", err.Error(),
		)

		return nil
	}

	lr.state.RecordSuccess()
	lr.history = append(lr.history, res.Content)
	lr.coord.Emit(core.NewMessageEvent(lr.state.RunID(), a.name, res.Content))

	return nil
}

// executeTools runs one turn's calls through the scheduler and appends every
// produced response to the history, failures included, so the model observes
// the outcomes. A non-nil return aborts the run.
func (lr *loopRun) executeTools(ctx context.Context, calls []core.FunctionCall) error {
	a := lr.agent

	results, err := a.scheduler.RunAll(ctx, calls, scheduler.Deps{
		Agent:       a.name,
		Tools:       a.tools,
		Pipeline:    a.pipeline,
		State:       lr.state,
		Coordinator: lr.coord,
	})

	for _, res := range results {
		lr.history = append(lr.history, core.Content{
			Role:  core.RoleTool,
			Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: res.Response}},
		})
	}

	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			lr.state.Terminate(core.ReasonCancelled)
			return cerr
		}

		if core.IsCancelled(err) {
			lr.state.Terminate(core.ReasonCancelled)
			return err
		}

		lr.state.Terminate(core.ReasonFatalError)

		return err
	}

	return nil
}
