package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// StateTool lets the model read and write the run's metadata map so tools
// executed later in the same run can pick the values up. It reaches the
// state through the ambient invocation scope, which the scheduler installs
// before every call.
type StateTool struct {
	name        string
	description string
}

// NewStateTool creates the run-state management tool.
//
// Supported operations:
//   - get_state    - read a metadata value by key
//   - set_state    - store a metadata value under a key
//   - delete_state - remove a metadata entry
//   - list_keys    - list the stored metadata keys
//   - run_status   - report the run's progress counters
func NewStateTool() *StateTool {
	return &StateTool{
		name: "manage_state",
		description: "Manages state shared across tool calls of the current run. " +
			"Supports operations: get_state, set_state, delete_state, list_keys, run_status.",
	}
}

// Name returns the tool identifier.
func (t *StateTool) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *StateTool) Description() string {
	return t.description
}

// Parameters returns the JSON schema for tool parameters.
func (t *StateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type": "string",
				"enum": []string{
					"get_state", "set_state", "delete_state", "list_keys", "run_status",
				},
				"description": "The state operation to perform",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "State key for get_state/set_state/delete_state operations",
			},
			"value": map[string]interface{}{
				"description": "Value for set_state operations (any type)",
			},
		},
		"required": []string{"operation"},
	}
}

// Call implements the Tool interface with structured arguments.
func (t *StateTool) Call(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	inv, ok := core.InvocationFrom(ctx)
	if !ok || inv.State == nil {
		return nil, NewToolError(t.name, "no run state on this call", "no_run_state")
	}

	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		return t.handleGet(args, inv.State)
	case "set_state":
		return t.handleSet(args, inv.State)
	case "delete_state":
		return t.handleDelete(args, inv.State)
	case "list_keys":
		return t.handleListKeys(inv.State)
	case "run_status":
		return t.handleRunStatus(inv.State)
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

// handleGet retrieves a value from the run's metadata.
func (t *StateTool) handleGet(args map[string]interface{}, state *core.RunState) (interface{}, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for get_state operation")
	}

	value, exists := state.Meta(key)
	if !exists {
		return map[string]interface{}{
			"key":    key,
			"exists": false,
			"value":  nil,
		}, nil
	}

	return map[string]interface{}{
		"key":    key,
		"exists": true,
		"value":  value,
	}, nil
}

// handleSet stores a value in the run's metadata.
func (t *StateTool) handleSet(args map[string]interface{}, state *core.RunState) (interface{}, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for set_state operation")
	}

	value := args["value"] // Can be any type

	state.SetMeta(key, value)

	return map[string]interface{}{
		"key":     key,
		"value":   value,
		"success": true,
		"message": fmt.Sprintf("State key '%s' set successfully", key),
	}, nil
}

// handleDelete removes a metadata entry.
func (t *StateTool) handleDelete(args map[string]interface{}, state *core.RunState) (interface{}, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for delete_state operation")
	}

	state.DeleteMeta(key)

	return map[string]interface{}{
		"key":     key,
		"success": true,
		"message": fmt.Sprintf("State key '%s' deleted", key),
	}, nil
}

// handleListKeys lists the stored metadata keys.
func (t *StateTool) handleListKeys(state *core.RunState) (interface{}, error) {
	keys := state.MetaKeys()

	return map[string]interface{}{
		"keys":    keys,
		"count":   len(keys),
		"success": true,
	}, nil
}

// handleRunStatus reports the run's progress counters.
func (t *StateTool) handleRunStatus(state *core.RunState) (interface{}, error) {
	snap := state.Snapshot()

	return map[string]interface{}{
		"run_id":             snap.RunID,
		"agent":              snap.Agent,
		"iteration":          snap.Iteration,
		"max_iterations":     snap.MaxIterations,
		"consecutive_errors": snap.ConsecutiveErrors,
		"completed_tools":    snap.CompletedTools,
		"success":            true,
	}, nil
}
