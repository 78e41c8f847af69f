package core

import (
	"testing"
	"time"
)

func TestNewEvent_Basics(t *testing.T) {
	before := time.Now().UTC()
	ev := NewEvent("run1", "agent1", EventMessage)

	if ev.ID == "" {
		t.Error("event should receive a generated id")
	}
	if ev.RunID != "run1" || ev.Agent != "agent1" || ev.Kind != EventMessage {
		t.Errorf("unexpected identity fields: %+v", ev)
	}
	if ev.Timestamp.Before(before) {
		t.Error("timestamp should be set at construction")
	}
	if ev.IsTerminal() {
		t.Error("message events are not terminal")
	}
}

func TestNewTextFragmentEvent(t *testing.T) {
	ev := NewTextFragmentEvent("run1", "agent1", "chunk")
	if ev.Kind != EventTextFragment {
		t.Errorf("unexpected kind: %s", ev.Kind)
	}
	if ev.Text() != "chunk" {
		t.Errorf("unexpected text: %q", ev.Text())
	}
}

func TestNewMessageEvent_CarriesFunctionCalls(t *testing.T) {
	content := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "let me check"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"x"}`}},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c2", Name: "fetch"}},
		},
	}

	ev := NewMessageEvent("run1", "agent1", content)
	calls := ev.FunctionCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "lookup" || calls[1].Name != "fetch" {
		t.Error("function call order not preserved")
	}
}

func TestNewToolCallEvents(t *testing.T) {
	started := NewToolCallStartedEvent("run1", "agent1", FunctionCall{ID: "c1", Name: "lookup"})
	if started.Kind != EventToolCallStarted || len(started.FunctionCalls()) != 1 {
		t.Errorf("unexpected started event: %+v", started)
	}

	finished := NewToolCallFinishedEvent("run1", "agent1", FunctionResponse{ID: "c1", Name: "lookup", Error: "boom"})
	if finished.Kind != EventToolCallFinished {
		t.Errorf("unexpected kind: %s", finished.Kind)
	}
	if finished.ErrorMessage != "boom" {
		t.Error("response error should surface on the event")
	}
	if len(finished.FunctionResponses()) != 1 {
		t.Error("finished event should carry the response part")
	}
}

func TestNewApprovalEvents(t *testing.T) {
	call := FunctionCall{ID: "c1", Name: "delete_file", Arguments: `{"path":"/tmp/x"}`}
	req := NewApprovalRequestedEvent("run1", "agent1", "corrX", call, "delete /tmp/x")

	if req.Kind != EventApprovalRequested || req.CorrelationID != "corrX" {
		t.Errorf("unexpected approval request: %+v", req)
	}
	data, ok := req.Content.Parts[0].(DataPart)
	if !ok {
		t.Fatal("approval request should carry a data part")
	}
	if data.Data["tool"] != "delete_file" || data.Data["description"] != "delete /tmp/x" {
		t.Errorf("unexpected payload: %v", data.Data)
	}

	res := NewApprovalResolvedEvent("run1", "agent1", "corrX", ApprovalDecision{Approved: true})
	if res.Kind != EventApprovalResolved || res.CorrelationID != "corrX" {
		t.Errorf("unexpected approval resolution: %+v", res)
	}
}

func TestNewTerminationEvent(t *testing.T) {
	ev := NewTerminationEvent("run1", "agent1", ReasonFatalError, "backend exploded")
	if !ev.IsTerminal() {
		t.Error("termination event must be terminal")
	}
	if ev.Reason != ReasonFatalError || ev.ErrorMessage != "backend exploded" {
		t.Errorf("unexpected terminal fields: %+v", ev)
	}
}

func TestEvent_TextOnControlEvent(t *testing.T) {
	ev := NewTerminationEvent("run1", "agent1", ReasonNaturalCompletion, "")
	if ev.Text() != "" {
		t.Error("control events have no text")
	}
	if calls := ev.FunctionCalls(); calls != nil {
		t.Errorf("control events have no calls: %v", calls)
	}
}

func TestEvent_UnixSeconds(t *testing.T) {
	ev := NewEvent("run1", "agent1", EventMessage)
	if ev.UnixSeconds() <= 0 {
		t.Error("UnixSeconds should be positive for current timestamps")
	}
}
