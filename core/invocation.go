package core

import (
	"context"
)

// FunctionInvocation is the ambient execution scope of a single tool call.
// It is created immediately before the tool implementation runs, installed
// on the call's context via WithInvocation, and discarded after the call
// returns. Tools reach it through InvocationFrom to inspect their call
// identity and to coordinate through the owning run's state.
type FunctionInvocation struct {
	CallID    string         // Identifier of the originating FunctionCall
	Name      string         // Tool name
	Arguments map[string]any // Parsed argument payload
	Agent     string         // Owning agent's name
	Iteration int            // Loop iteration the call belongs to
	State     *RunState      // Owning run's state (shared back-reference, not owned)

	metadata map[string]any
}

// NewFunctionInvocation builds the per-call scope for one tool execution.
func NewFunctionInvocation(call FunctionCall, args map[string]any, agent string, state *RunState) *FunctionInvocation {
	iteration := 0
	if state != nil {
		iteration = state.Iteration()
	}

	return &FunctionInvocation{
		CallID:    call.ID,
		Name:      call.Name,
		Arguments: args,
		Agent:     agent,
		Iteration: iteration,
		State:     state,
		metadata:  make(map[string]any),
	}
}

// SetMeta stores a value in the invocation's private metadata map. Unlike
// RunState metadata this does not outlive the call.
func (fi *FunctionInvocation) SetMeta(key string, value any) {
	fi.metadata[key] = value
}

// Meta returns an invocation metadata value and whether it was present.
func (fi *FunctionInvocation) Meta(key string) (any, bool) {
	v, ok := fi.metadata[key]
	return v, ok
}

// Root identifies the outermost agent of the current logical call tree and
// carries its coordinator so nested runs can bubble events. It is
// established once by the outermost loop and inherited by nested loops
// invoked as tools; context derivation restores the prior value on every
// exit path.
type Root struct {
	Agent       string       // Root agent's name
	RunID       string       // Root run identifier
	Coordinator *Coordinator // Bubbling target (non-owning)
}

type ctxKey int

const (
	invocationKey ctxKey = iota
	rootKey
)

// WithInvocation returns a context carrying the given invocation as the
// ambient tool-call scope.
func WithInvocation(ctx context.Context, inv *FunctionInvocation) context.Context {
	return context.WithValue(ctx, invocationKey, inv)
}

// InvocationFrom returns the ambient FunctionInvocation, or false when the
// context does not belong to a tool call.
func InvocationFrom(ctx context.Context) (*FunctionInvocation, bool) {
	inv, ok := ctx.Value(invocationKey).(*FunctionInvocation)
	return inv, ok
}

// WithRoot returns a context carrying the given root marker.
func WithRoot(ctx context.Context, root *Root) context.Context {
	return context.WithValue(ctx, rootKey, root)
}

// RootFrom returns the ambient root marker, or false when no loop has been
// entered on this call chain.
func RootFrom(ctx context.Context) (*Root, bool) {
	root, ok := ctx.Value(rootKey).(*Root)
	return root, ok
}
