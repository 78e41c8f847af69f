// Package interceptor implements the cross-cutting call pipeline wrapped
// around model and tool invocations.
//
// A Pipeline holds one ordered registration list from which two chains are
// derived: the model-call chain and the function-call chain. Registration
// order is inside-out; the last registered interceptor sits outermost and
// observes the call first. Interceptors may inspect or mutate the call
// context, short-circuit, re-invoke next, or impose deadlines.
package interceptor

import (
	"context"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// ModelCall carries everything the model-call chain may act on. Request
// mutations are visible to inner interceptors and the base continuation.
type ModelCall struct {
	Agent       string            // Calling agent's name
	ModelName   string            // Backend model identifier (for logs and spans)
	Request     model.Request     // The request about to be issued
	State       *core.RunState    // Owning run's state (shared, not owned)
	Coordinator *core.Coordinator // Owning run's coordinator
}

// ToolCall carries everything the function-call chain may act on.
type ToolCall struct {
	Agent       string            // Calling agent's name
	Call        core.FunctionCall // The originating function call
	Arguments   map[string]any    // Parsed argument payload
	Tool        tool.Tool         // Resolved tool implementation
	State       *core.RunState    // Owning run's state (shared, not owned)
	Coordinator *core.Coordinator // Owning run's coordinator
}

// ModelFunc is the continuation a model-chain interceptor wraps. Invoking it
// runs the remainder of the chain plus the underlying model call.
type ModelFunc func(ctx context.Context) (*model.Result, error)

// ToolFunc is the continuation a function-chain interceptor wraps.
type ToolFunc func(ctx context.Context) (any, error)

// Interceptor wraps model and tool calls with cross-cutting behavior. One
// registration participates in both chains; embed PassThrough to take part
// in only one of them.
type Interceptor interface {
	InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error)
	InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error)
}

// PassThrough is a no-op Interceptor meant for embedding.
type PassThrough struct{}

// InterceptModel forwards to next unchanged.
func (PassThrough) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	return next(ctx)
}

// InterceptTool forwards to next unchanged.
func (PassThrough) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	return next(ctx)
}

// Pipeline is the ordered interceptor registration list of one agent. It is
// assembled during agent construction and read-only afterwards.
type Pipeline struct {
	interceptors []Interceptor
}

// NewPipeline creates a pipeline from the given interceptors, innermost
// first. Nil entries are skipped.
func NewPipeline(interceptors ...Interceptor) *Pipeline {
	p := &Pipeline{}
	p.Use(interceptors...)
	return p
}

// Use appends interceptors to the registration list. Later registrations
// wrap earlier ones.
func (p *Pipeline) Use(interceptors ...Interceptor) {
	for _, it := range interceptors {
		if it != nil {
			p.interceptors = append(p.interceptors, it)
		}
	}
}

// Len returns the number of registered interceptors.
func (p *Pipeline) Len() int { return len(p.interceptors) }

// Model folds the model-call chain around base and runs it.
func (p *Pipeline) Model(ctx context.Context, call *ModelCall, base ModelFunc) (*model.Result, error) {
	next := base
	for _, it := range p.interceptors {
		next = wrapModel(it, call, next)
	}
	return next(ctx)
}

func wrapModel(it Interceptor, call *ModelCall, next ModelFunc) ModelFunc {
	return func(ctx context.Context) (*model.Result, error) {
		return it.InterceptModel(ctx, call, next)
	}
}

// Tool folds the function-call chain around base and runs it.
func (p *Pipeline) Tool(ctx context.Context, call *ToolCall, base ToolFunc) (any, error) {
	next := base
	for _, it := range p.interceptors {
		next = wrapTool(it, call, next)
	}
	return next(ctx)
}

func wrapTool(it Interceptor, call *ToolCall, next ToolFunc) ToolFunc {
	return func(ctx context.Context) (any, error) {
		return it.InterceptTool(ctx, call, next)
	}
}
