package agent

import (
	"fmt"
	"sort"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/interceptor"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/scheduler"
	"github.com/hupe1980/agentloop/tool"
)

// Options configures an Agent instance.
type Options struct {
	// Instruction supplies the system prompt. Defaults to a generic
	// assistant prompt built from the agent's name.
	Instruction Instruction

	// Tools seeds the agent's tool set.
	Tools []tool.Tool

	// Registry, when set, contributes a filtered view of a shared catalog:
	// the tools named in ToolNames, or the whole catalog when ToolNames is
	// empty. Tools given directly win on name clashes.
	Registry  *tool.Registry
	ToolNames []string

	// Retry is the built-in retry interceptor. Set to nil to disable
	// retrying entirely.
	Retry *interceptor.Retry

	// Permission is the built-in approval interceptor. Set to nil to run
	// every tool unprompted.
	Permission *interceptor.Permission

	// Interceptors are registered after the built-in retry and permission
	// interceptors, so they observe calls before either of them.
	Interceptors []interceptor.Interceptor

	// RequestHooks mutate each outgoing model request in order, after the
	// built-in history trimming hook.
	RequestHooks []RequestHook

	// Scheduler executes one turn's tool calls. Defaults to the sequential
	// policy.
	Scheduler scheduler.Scheduler

	// Decider chooses the loop's next step. Defaults to StandardDecider.
	Decider Decider

	// MaxIterations caps the model calls per run.
	MaxIterations int

	// ErrorLimit caps consecutive failed calls per run.
	ErrorLimit int

	// Temperature and MaxTokens override the backend defaults when set.
	Temperature *float64
	MaxTokens   int64

	// EnableStreaming forwards partial model output as text-fragment events.
	EnableStreaming bool

	// MaxHistoryMessages bounds the conversation window sent to the model.
	// Zero disables trimming.
	MaxHistoryMessages int

	// Logger receives the loop's structured log lines. Defaults to the
	// no-op logger.
	Logger logging.Logger
}

// Agent drives the reasoning loop around one language model: decide, call
// the model, execute requested tools through the interceptor pipeline, until
// a termination condition is met. Construction wires the pipeline and tool
// set; Run starts independent concurrent runs that do not share mutable
// state.
type Agent struct {
	name        string
	model       model.Model
	instruction Instruction
	tools       map[string]tool.Tool
	pipeline    *interceptor.Pipeline
	hooks       []RequestHook
	scheduler   scheduler.Scheduler
	decider     Decider

	maxIterations int
	errorLimit    int

	temperature *float64
	maxTokens   int64
	streaming   bool

	logger logging.Logger
}

// New creates an agent with sensible defaults: streaming enabled, retry and
// permission interceptors installed, sequential tool execution, a 20-message
// history window and the standard decision policy.
func New(name string, m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		Retry:              interceptor.NewRetry(),
		Permission:         interceptor.NewPermission(),
		Decider:            StandardDecider{},
		MaxIterations:      core.DefaultMaxIterations,
		ErrorLimit:         core.DefaultErrorLimit,
		EnableStreaming:    true,
		MaxHistoryMessages: 20,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]tool.Tool)
	if opts.Registry != nil {
		tools = opts.Registry.View(opts.ToolNames...)
	}

	for _, t := range opts.Tools {
		tools[t.Name()] = t
	}

	pipeline := interceptor.NewPipeline()
	if opts.Retry != nil {
		pipeline.Use(opts.Retry)
	}

	if opts.Permission != nil {
		pipeline.Use(opts.Permission)
	}

	pipeline.Use(opts.Interceptors...)

	var hooks []RequestHook
	if opts.MaxHistoryMessages > 0 {
		hooks = append(hooks, TrimHistory(opts.MaxHistoryMessages))
	}

	hooks = append(hooks, opts.RequestHooks...)

	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler.NewSequential(func(o *scheduler.SequentialOptions) {
			o.Logger = opts.Logger
		})
	}

	return &Agent{
		name:          name,
		model:         m,
		instruction:   opts.Instruction,
		tools:         tools,
		pipeline:      pipeline,
		hooks:         hooks,
		scheduler:     sched,
		decider:       opts.Decider,
		maxIterations: opts.MaxIterations,
		errorLimit:    opts.ErrorLimit,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		streaming:     opts.EnableStreaming,
		logger:        opts.Logger,
	}
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Model returns the backing language model.
func (a *Agent) Model() model.Model { return a.model }

// RegisterTool adds a tool to the agent's capability set. Registration is
// meant for construction time; the tool set is not synchronized against
// active runs.
func (a *Agent) RegisterTool(t tool.Tool) {
	a.tools[t.Name()] = t
}

// RegisterTools adds multiple tools to the agent's capability set.
func (a *Agent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// UnregisterTool removes a tool, reporting whether it was registered.
func (a *Agent) UnregisterTool(name string) bool {
	if _, ok := a.tools[name]; ok {
		delete(a.tools, name)
		return true
	}

	return false
}

// HasTool checks if a tool is registered with the agent.
func (a *Agent) HasTool(name string) bool {
	_, ok := a.tools[name]
	return ok
}

// GetTool retrieves a specific tool by name.
func (a *Agent) GetTool(name string) (tool.Tool, bool) {
	t, ok := a.tools[name]
	return t, ok
}

// ListTools returns the names of all registered tools, sorted.
func (a *Agent) ListTools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Tools returns a copy of the agent's tool set.
func (a *Agent) Tools() map[string]tool.Tool {
	out := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		out[name] = t
	}

	return out
}

// toolDefinitions builds the declarative tool list for one request in
// deterministic name order.
func (a *Agent) toolDefinitions() []model.ToolDefinition {
	if len(a.tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(a.tools))

	for _, name := range a.ListTools() {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}
