package agent

import (
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
)

// Decider chooses the loop's next step from the conversation so far, the
// tool catalog and the run's progress. Implementations must be pure: no I/O,
// no suspension, no mutation of their inputs. The standard policy ignores
// the catalog; it is part of the interface so alternative policies can
// consult it.
type Decider interface {
	Decide(history []core.Content, catalog map[string]tool.Tool, state *core.RunState) core.Decision
}

// DeciderFunc is a functional adapter to allow ordinary functions to be used
// as Deciders.
type DeciderFunc func(history []core.Content, catalog map[string]tool.Tool, state *core.RunState) core.Decision

// Decide implements Decider.
func (f DeciderFunc) Decide(history []core.Content, catalog map[string]tool.Tool, state *core.RunState) core.Decision {
	return f(history, catalog, state)
}

// StandardDecider implements the default decision policy.
//
// In order: a terminated run stays terminated with its recorded reason; a
// trailing assistant message without tool calls completes the run naturally;
// the iteration ceiling terminates the run even when calls are pending,
// since their results could never be consumed by another model turn; a
// consecutive-error count over the limit terminates the run; pending calls
// are executed in the model's requested order; anything else, meaning an
// empty history or a trailing user or tool-result message, takes another
// model turn.
type StandardDecider struct{}

// Decide implements Decider.
func (StandardDecider) Decide(history []core.Content, _ map[string]tool.Tool, state *core.RunState) core.Decision {
	if state.IsTerminated() {
		return core.Terminate(state.Reason())
	}

	var calls []core.FunctionCall

	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == core.RoleAssistant {
			calls = last.FunctionCalls()
			if len(calls) == 0 {
				return core.Terminate(core.ReasonNaturalCompletion)
			}
		}
	}

	if state.AtIterationLimit() {
		return core.Terminate(core.ReasonIterationLimit)
	}

	if state.ErrorLimitExceeded() {
		return core.Terminate(core.ReasonErrorLimit)
	}

	if len(calls) > 0 {
		return core.ExecuteTools(calls)
	}

	return core.CallModel()
}
