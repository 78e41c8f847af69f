// Package agentloop provides a high-level facade over the run management and
// session layers enabling rapid construction of tool-using model agents. Most
// applications interact with this package by:
//  1. Creating an AgentLoop via New() (optionally overriding the session
//     store, logger or concurrency ceiling)
//  2. Registering one or more agents built with the agent package
//  3. Starting runs asynchronously (Run) or conversationally (Chat)
//
// The facade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable session store
// and a structured logger.
package agentloop

import (
	"context"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/runner"
	"github.com/hupe1980/agentloop/session"
)

// Options configures the AgentLoop instance.
type Options struct {
	// MaxConcurrentRuns bounds simultaneously executing runs. Zero means
	// unbounded.
	MaxConcurrentRuns int

	// Sessions persists conversation history (defaults to an in-memory
	// store if not provided).
	Sessions session.Store

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentLoop is the high-level facade aggregating the runner and its services.
type AgentLoop struct {
	runner *runner.Runner
}

// New creates a new AgentLoop instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentLoop {
	opts := Options{
		Sessions: session.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.Sessions = opts.Sessions
		o.Logger = opts.Logger
	})

	return &AgentLoop{runner: r}
}

// RegisterAgent adds agents to the underlying runner.
func (l *AgentLoop) RegisterAgent(agents ...*agent.Agent) { l.runner.Register(agents...) }

// Run starts an asynchronous run of the named agent inside the given session
// and returns its handle. The caller consumes the handle's event stream and
// answers approval requests through it or through Approve/Deny here.
func (l *AgentLoop) Run(ctx context.Context, agentName, sessionID string, input core.Content) (*agent.Run, error) {
	return l.runner.Run(ctx, agentName, sessionID, input)
}

// RunSync executes a run to completion and returns the ordered events it
// produced.
func (l *AgentLoop) RunSync(ctx context.Context, agentName, sessionID string, input core.Content) ([]core.Event, error) {
	return l.runner.RunSync(ctx, agentName, sessionID, input)
}

// Chat sends one user message into the session and blocks for the final
// assistant text. History accumulates in the session between calls, making
// this the console-style conversation surface.
func (l *AgentLoop) Chat(ctx context.Context, agentName, sessionID, message string) (string, error) {
	events, err := l.runner.RunSync(ctx, agentName, sessionID, core.NewTextContent(core.RoleUser, message))
	if err != nil {
		return "", err
	}

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Kind != core.EventMessage || ev.Content == nil || ev.Content.Role != core.RoleAssistant {
			continue
		}

		if text := ev.Content.Text(); text != "" {
			return text, nil
		}
	}

	return "", nil
}

// Cancel stops an active run by id.
func (l *AgentLoop) Cancel(runID string) error { return l.runner.Cancel(runID) }

// Resolve routes an external decision or value to the run that raised the
// request.
func (l *AgentLoop) Resolve(runID, correlationID string, value any) error {
	return l.runner.Resolve(runID, correlationID, value)
}

// Approve resolves an approval request affirmatively.
func (l *AgentLoop) Approve(runID, correlationID string) error {
	return l.runner.Approve(runID, correlationID)
}

// Deny resolves an approval request negatively with an optional reason.
func (l *AgentLoop) Deny(runID, correlationID, reason string) error {
	return l.runner.Deny(runID, correlationID, reason)
}

// Session returns the stored session snapshot for the given id.
func (l *AgentLoop) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return l.runner.Session(ctx, sessionID)
}

// Runner exposes the underlying runner for advanced wiring.
func (l *AgentLoop) Runner() *runner.Runner { return l.runner }
