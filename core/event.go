package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind labels the semantic category of an observable run event.
type EventKind string

// Event kinds produced over the lifetime of a run. The terminal kind is
// always EventRunTerminated; consumers can rely on it closing the sequence.
const (
	EventTextFragment      EventKind = "text_fragment"      // Incremental model output
	EventMessage           EventKind = "message"            // Complete assistant message for one turn
	EventToolCallStarted   EventKind = "tool_call_started"  // Tool invocation is about to run
	EventToolCallFinished  EventKind = "tool_call_finished" // Tool invocation returned (result or error)
	EventApprovalRequested EventKind = "approval_requested" // A call is suspended awaiting an external decision
	EventApprovalResolved  EventKind = "approval_resolved"  // The external decision arrived
	EventRunTerminated     EventKind = "run_terminated"     // The run reached a terminal state
)

// Event is the primary unit of communication between a running agent and
// external observers. After emission it should be treated as immutable. It
// captures:
//   - Correlation (RunID, ID, CorrelationID for suspend/resume pairs)
//   - Conversational content (optional role-based Parts)
//   - Tool activity (call requests and responses)
//   - Termination metadata (reason + optional error message)
//   - High precision UTC timestamp
//
// Content may be nil for control events. Timestamp uses a native time.Time
// (UTC).
type Event struct {
	ID            string            `json:"id"`
	RunID         string            `json:"run_id"`
	Agent         string            `json:"agent"`
	Kind          EventKind         `json:"kind"`
	Timestamp     time.Time         `json:"timestamp"`
	Content       *Content          `json:"content,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Reason        TerminationReason `json:"reason,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

// NewEvent creates a bare event of the given kind authored by 'agent' bound
// to a run. Prefer the helper constructors for common semantic categories.
func NewEvent(runID, agent string, kind EventKind) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Agent:     agent,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// NewTextFragmentEvent wraps one incremental chunk of streamed model output.
func NewTextFragmentEvent(runID, agent, text string) Event {
	e := NewEvent(runID, agent, EventTextFragment)
	e.Content = &Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
	return e
}

// NewMessageEvent carries the complete assistant message of one model turn,
// including any function call parts the model requested.
func NewMessageEvent(runID, agent string, content Content) Event {
	e := NewEvent(runID, agent, EventMessage)
	e.Content = &content
	return e
}

// NewToolCallStartedEvent signals that the named tool invocation is entering
// execution.
func NewToolCallStartedEvent(runID, agent string, call FunctionCall) Event {
	e := NewEvent(runID, agent, EventToolCallStarted)
	e.Content = &Content{Role: RoleAssistant, Parts: []Part{FunctionCallPart{FunctionCall: call}}}
	return e
}

// NewToolCallFinishedEvent records the completion result (or error) of a tool
// invocation.
func NewToolCallFinishedEvent(runID, agent string, resp FunctionResponse) Event {
	e := NewEvent(runID, agent, EventToolCallFinished)
	e.Content = &Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: resp}}}
	if resp.Error != "" {
		e.ErrorMessage = resp.Error
	}
	return e
}

// NewApprovalRequestedEvent announces that the given call is suspended until
// an external actor resolves the correlation id with an ApprovalDecision.
// The description is a human-readable summary for whoever reviews the
// request.
func NewApprovalRequestedEvent(runID, agent, correlationID string, call FunctionCall, description string) Event {
	e := NewEvent(runID, agent, EventApprovalRequested)
	e.CorrelationID = correlationID
	e.Content = &Content{
		Role: RoleAssistant,
		Parts: []Part{DataPart{Data: map[string]any{
			"tool":        call.Name,
			"call_id":     call.ID,
			"arguments":   call.Arguments,
			"description": description,
		}}},
	}
	return e
}

// NewApprovalResolvedEvent records the decision that released a previously
// suspended call.
func NewApprovalResolvedEvent(runID, agent, correlationID string, decision ApprovalDecision) Event {
	e := NewEvent(runID, agent, EventApprovalResolved)
	e.CorrelationID = correlationID
	e.Content = &Content{
		Role: RoleAssistant,
		Parts: []Part{DataPart{Data: map[string]any{
			"approved": decision.Approved,
			"reason":   decision.Reason,
		}}},
	}
	return e
}

// NewTerminationEvent is the terminal event of every run. The reason is
// never empty; errMsg carries the fatal error text when the reason is
// ReasonFatalError.
func NewTerminationEvent(runID, agent string, reason TerminationReason, errMsg string) Event {
	e := NewEvent(runID, agent, EventRunTerminated)
	e.Reason = reason
	e.ErrorMessage = errMsg
	return e
}

// NewID generates a new unique identifier for events, runs, calls and
// correlation ids.
func NewID() string { return uuid.NewString() }

// IsTerminal reports whether this event closes the run's observable
// sequence.
func (e Event) IsTerminal() bool { return e.Kind == EventRunTerminated }

// FunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) FunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	return e.Content.FunctionCalls()
}

// FunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) FunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	return e.Content.FunctionResponses()
}

// Text returns the concatenated text parts of the event content, or the
// empty string for control events.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
