// Package runner manages concurrent agent runs behind one coordination
// surface.
//
// A Runner owns a registry of named agents and a table of active runs. It
// loads the session history before each run, hands back the run handle for
// event consumption, and persists the conversation once the run finishes.
// Approval resolutions route by run id, so a front end holding nothing but
// the id of the root run can answer requests raised anywhere in its
// invocation tree.
//
// # Responsibilities
//   - Agent registry (thread-safe registration and lookup)
//   - Run lifecycle: start, cancellation by id, bounded concurrency
//   - Session history seeding and persistence around every run
//   - Resolution routing (Resolve/Approve/Deny by run id)
//   - Synchronous conversation facade (RunSync)
//
// See runner.go for the operational implementation details.
package runner
