// Package core provides the foundational domain types and the concurrency
// substrate of the agent loop. It defines the core abstractions for:
//
//   - Content (role-tagged message parts exchanged with the model)
//   - Events (immutable observable records of run progress)
//   - RunState (per-run progress tracking with invariant-preserving mutation)
//   - Coordinator (event outbox + correlation map for suspend/resume)
//   - FunctionInvocation / Root (ambient per-call context values)
//   - The error taxonomy shared by every layer of the loop
//
// The package intentionally keeps implementation concerns (model providers,
// tool execution, run orchestration) out of scope, exposing small value types
// and one concurrency-safe primitive (the Coordinator) that higher layers
// compose. All exported identifiers include concise documentation to aid
// discoverability and external consumption.
package core
