package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
)

// AgentToolOptions configures the tool surface of a nested agent.
type AgentToolOptions struct {
	// Name overrides the tool name. Defaults to the agent's name.
	Name string

	// Description tells the calling model what the nested agent is for.
	Description string

	// RequiresApproval gates every delegation behind the calling agent's
	// permission interceptor.
	RequiresApproval bool
}

// AsTool exposes the agent as a callable tool so another agent can delegate
// work to it. The nested run inherits the caller's session id and bubbles
// its events to the root coordinator of the invocation tree, so approval
// requests raised inside the nested agent surface on the outermost run and
// can be resolved there.
func (a *Agent) AsTool(optFns ...func(o *AgentToolOptions)) tool.Tool {
	opts := AgentToolOptions{
		Name:        a.name,
		Description: fmt.Sprintf("Delegate a task to the %s agent and return its final answer.", a.name),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &agentTool{
		agent:            a,
		name:             opts.Name,
		description:      opts.Description,
		requiresApproval: opts.RequiresApproval,
	}
}

// agentTool adapts an Agent to the tool.Tool interface.
type agentTool struct {
	agent            *Agent
	name             string
	description      string
	requiresApproval bool
}

// Name implements tool.Tool.
func (t *agentTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *agentTool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *agentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "The task or question to hand to the agent.",
			},
		},
		"required": []string{"input"},
	}
}

// RequiresApproval reports whether delegations must be approved first.
func (t *agentTool) RequiresApproval() bool { return t.requiresApproval }

// Call implements tool.Tool by executing a complete nested run and returning
// the nested agent's final text. Run-aborting errors propagate with their
// classification intact; policy terminations other than natural completion
// surface as ordinary tool errors the calling model can react to.
func (t *agentTool) Call(ctx context.Context, args map[string]any) (any, error) {
	input, _ := args["input"].(string)
	if input == "" {
		return nil, tool.NewToolError(t.name, "missing required argument: input", "invalid_arguments")
	}

	var runOpts []func(o *RunOptions)

	if inv, ok := core.InvocationFrom(ctx); ok && inv.State != nil {
		sessionID := inv.State.SessionID()
		runOpts = append(runOpts, func(o *RunOptions) {
			o.SessionID = sessionID
		})
	}

	run := t.agent.Run(ctx, core.NewTextContent(core.RoleUser, input), runOpts...)

	if err := run.Wait(ctx); err != nil {
		return nil, err
	}

	if reason := run.Snapshot().Reason; reason != core.ReasonNaturalCompletion {
		return nil, tool.NewToolError(t.name, fmt.Sprintf("nested run ended early: %s", reason), "agent_terminated")
	}

	return lastAssistantText(run.History()), nil
}

// lastAssistantText returns the text of the last assistant message carrying
// any.
func lastAssistantText(history []core.Content) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleAssistant {
			if text := history[i].Text(); text != "" {
				return text
			}
		}
	}

	return ""
}
