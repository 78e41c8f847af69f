// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language / reasoning models inside the loop.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Fold streamed fragments into one aggregate Result (Collect)
//   - Facilitate scripted mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, interceptors) remain decoupled from
// vendor SDKs.
package model
