package interceptor

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultApprovalTimeout bounds how long a suspended tool call waits for an
// external decision before failing with a timeout.
const DefaultApprovalTimeout = 5 * time.Minute

// ApprovalPolicy decides whether the given tool call must be approved before
// it runs. Returning false lets the call proceed unprompted.
type ApprovalPolicy func(ctx context.Context, call *ToolCall) bool

// PermissionOptions configures the permission interceptor.
type PermissionOptions struct {
	// Policy overrides the default approval decision. When nil, tools that
	// declare RequiresApproval are gated and all others run unprompted.
	Policy ApprovalPolicy

	// Timeout bounds the wait for an external decision.
	Timeout time.Duration
}

// Permission suspends gated tool calls until an external actor approves
// them. It emits an approval-requested event carrying a fresh correlation
// id, parks the call on the coordinator, and resumes (or refuses) once the
// id is resolved with a core.ApprovalDecision. Model calls pass through
// untouched.
//
// A denial is an ordinary tool failure, not a run-terminating error: the
// model sees it as the call's error result and can carry on.
type Permission struct {
	opts PermissionOptions
}

// NewPermission creates the permission interceptor with optional
// configuration.
func NewPermission(optFns ...func(o *PermissionOptions)) *Permission {
	opts := PermissionOptions{
		Timeout: DefaultApprovalTimeout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Policy == nil {
		opts.Policy = func(_ context.Context, call *ToolCall) bool {
			return tool.RequiresApproval(call.Tool)
		}
	}

	return &Permission{opts: opts}
}

// InterceptModel forwards model calls unchanged.
func (p *Permission) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	return next(ctx)
}

// InterceptTool gates the call behind an external approval decision when the
// policy demands one.
func (p *Permission) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	if !p.opts.Policy(ctx, call) {
		return next(ctx)
	}

	runID := ""
	if call.State != nil {
		runID = call.State.RunID()
	}

	correlationID := core.NewID()
	description := fmt.Sprintf("agent %q requests permission to run tool %q", call.Agent, call.Call.Name)
	call.Coordinator.Emit(core.NewApprovalRequestedEvent(runID, call.Agent, correlationID, call.Call, description))

	decision, err := core.Await[core.ApprovalDecision](ctx, call.Coordinator, correlationID, p.opts.Timeout)
	if err != nil {
		return nil, err
	}

	call.Coordinator.Emit(core.NewApprovalResolvedEvent(runID, call.Agent, correlationID, decision))

	if !decision.Approved {
		reason := decision.Reason
		if reason == "" {
			reason = "approval denied"
		}
		return nil, tool.NewToolError(call.Call.Name, reason, "permission_denied")
	}

	return next(ctx)
}
