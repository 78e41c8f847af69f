// Package session persists conversation history across runs. A Session keeps
// the ordered role-tagged messages of one conversation plus a free-form state
// bag; a Store loads and saves sessions by ID, creating them lazily on first
// access.
//
// Two implementations ship with the module: InMemoryStore for tests and
// ephemeral demo servers, and RedisStore for durable multi-node deployments.
// Both hand out clones, so a loaded session can be mutated freely and written
// back with Save when the conversation turn completes.
package session
