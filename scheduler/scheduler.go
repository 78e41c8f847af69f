// Package scheduler executes the batch of function calls requested by one
// model turn. Policies decide ordering and concurrency; every call runs
// through the interceptor pipeline inside its own ambient invocation scope,
// updates the run's progress counters and emits started/finished events.
//
// A policy distinguishes two failure levels: ordinary tool failures are
// recorded on the call's response and fed back to the model, while fatal,
// protocol and cancellation failures abort the batch and surface as the
// policy's returned error.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/interceptor"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/tool"
)

// Deps carries the per-run collaborators a policy needs for one batch.
type Deps struct {
	Agent       string               // Calling agent's name
	Tools       map[string]tool.Tool // Resolvable tools by name
	Pipeline    *interceptor.Pipeline
	State       *core.RunState
	Coordinator *core.Coordinator
}

// Result pairs one function call with its outcome. The response carries
// either the tool's return value or the failure text the model will observe.
type Result struct {
	Call     core.FunctionCall
	Response core.FunctionResponse
}

// Scheduler runs one turn's function calls and returns their results in call
// order. The error is non-nil only when the batch was aborted; results
// produced before the abort are still returned.
type Scheduler interface {
	RunAll(ctx context.Context, calls []core.FunctionCall, deps Deps) ([]Result, error)
}

// runOne drives a single function call through argument parsing, tool
// resolution, the interceptor chain and run-state bookkeeping. The returned
// error carries the raw failure for abort classification; the same failure
// is already recorded on the result's response.
func runOne(ctx context.Context, fc core.FunctionCall, deps Deps, logger logging.Logger) (Result, error) {
	runID := ""
	if deps.State != nil {
		runID = deps.State.RunID()
	}

	deps.Coordinator.Emit(core.NewToolCallStartedEvent(runID, deps.Agent, fc))

	start := time.Now()
	out, err := dispatch(ctx, fc, deps)

	if deps.State != nil {
		deps.State.AppendCompletedTool(fc.Name)
		if err != nil {
			deps.State.RecordFailure()
		} else {
			deps.State.RecordSuccess()
		}
	}

	resp := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: out}
	if err != nil {
		resp.Error = err.Error()
	}
	deps.Coordinator.Emit(core.NewToolCallFinishedEvent(runID, deps.Agent, resp))

	logger.Debug("tool call finished",
		"agent", deps.Agent,
		"tool", fc.Name,
		"call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return Result{Call: fc, Response: resp}, err
}

// dispatch resolves and runs the tool behind fc through the pipeline's
// function chain. Panics inside the tool surface as execution errors.
func dispatch(ctx context.Context, fc core.FunctionCall, deps Deps) (any, error) {
	args, err := parseArguments(fc.Arguments)
	if err != nil {
		return nil, tool.NewToolError(fc.Name, fmt.Sprintf("invalid arguments: %v", err), "invalid_arguments")
	}

	impl, ok := deps.Tools[fc.Name]
	if !ok {
		return nil, tool.NewToolError(fc.Name, "tool not found", "unknown_tool")
	}

	inv := core.NewFunctionInvocation(fc, args, deps.Agent, deps.State)
	callCtx := core.WithInvocation(ctx, inv)

	base := func(ctx context.Context) (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				te := tool.NewToolError(fc.Name, fmt.Sprintf("panic: %v", r), "panic")
				te.Details = string(debug.Stack())
				out, err = nil, te
			}
		}()
		return impl.Call(ctx, args)
	}

	if deps.Pipeline == nil {
		return base(callCtx)
	}

	call := &interceptor.ToolCall{
		Agent:       deps.Agent,
		Call:        fc,
		Arguments:   args,
		Tool:        impl,
		State:       deps.State,
		Coordinator: deps.Coordinator,
	}

	return deps.Pipeline.Tool(callCtx, call, base)
}

func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	return args, nil
}

// abortsRun reports whether the failure ends the batch. Ordinary tool
// failures (including unclassified errors) feed back to the model instead.
func abortsRun(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if ctx.Err() != nil || core.IsCancelled(err) {
		return true
	}

	var ae *core.AgentError
	if errors.As(err, &ae) {
		return ae.Kind == core.KindFatal || ae.Kind == core.KindProtocol
	}

	return false
}
