// Package agent contains the reasoning loop that drives a language model
// with tools until a termination condition is met. The package focuses on
// three concerns:
//
//  1. The decision policy choosing the loop's next step (Decider)
//  2. One model turn: request assembly, hooks, the interceptor pipeline
//  3. The run lifecycle: state machine, event emission, the Run handle
//
// Design principles:
//   - Minimal hidden global state – ambient scope travels as context values
//   - Composability – agents nest through AsTool; events bubble to the root
//   - Observability – every run emits an ordered event stream ending in a
//     terminal event that names the termination reason
//   - Extensibility – swap the Decider, Scheduler or interceptors per agent
//
// Execution Model:
//   - Run starts one goroutine per run and returns a handle immediately
//   - Within a run, steps execute strictly sequentially; concurrency across
//     runs is unbounded
//   - Suspended approval requests resolve through the Run handle, or any
//     holder of the root coordinator
//
// The package intentionally keeps persistence, model specifics and tool
// abstractions in their respective packages to avoid cyclic deps.
package agent
