package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestContent_Text(t *testing.T) {
	c := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "hello "},
			DataPart{Data: map[string]any{"ignored": true}},
			TextPart{Text: "world"},
		},
	}
	if got := c.Text(); got != "hello world" {
		t.Errorf("expected concatenated text, got %q", got)
	}
}

func TestContent_FunctionExtraction(t *testing.T) {
	c := Content{
		Role: RoleAssistant,
		Parts: []Part{
			FunctionCallPart{FunctionCall: FunctionCall{ID: "a", Name: "one"}},
			TextPart{Text: "thinking"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "b", Name: "two"}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "a", Name: "one", Response: 1}},
		},
	}

	calls := c.FunctionCalls()
	if len(calls) != 2 || calls[0].Name != "one" || calls[1].Name != "two" {
		t.Errorf("unexpected calls: %v", calls)
	}

	responses := c.FunctionResponses()
	if len(responses) != 1 || responses[0].ID != "a" {
		t.Errorf("unexpected responses: %v", responses)
	}
}

func TestNewTextContent(t *testing.T) {
	c := NewTextContent(RoleUser, "hi there")
	if c.Role != RoleUser || len(c.Parts) != 1 || c.Text() != "hi there" {
		t.Errorf("malformed text content: %+v", c)
	}
}

func TestNewFunctionResponseContent(t *testing.T) {
	ok := NewFunctionResponseContent("c1", "lookup", map[string]any{"hits": 3}, nil)
	if ok.Role != RoleTool {
		t.Errorf("expected tool role, got %s", ok.Role)
	}
	resp := ok.FunctionResponses()
	if len(resp) != 1 || resp[0].Error != "" {
		t.Fatalf("unexpected responses: %v", resp)
	}

	failed := NewFunctionResponseContent("c2", "lookup", nil, errors.New("not found"))
	resp = failed.FunctionResponses()
	if len(resp) != 1 || resp[0].Error != "not found" {
		t.Errorf("error should be copied into the response: %v", resp)
	}
}

func TestContent_JSONRoundTrip(t *testing.T) {
	original := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "checking", Metadata: map[string]any{"lang": "en"}},
			DataPart{Data: map[string]any{"kind": "approval_request"}},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"go"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "lookup", Response: "ok"}},
		},
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Content
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n  in:  %+v\n  out: %+v", original, decoded)
	}
}

func TestContent_JSONWireShape(t *testing.T) {
	raw, err := json.Marshal(NewTextContent(RoleUser, "hi"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal wire: %v", err)
	}
	parts, ok := wire["parts"].([]any)
	if !ok || len(parts) != 1 {
		t.Fatalf("expected one wire part, got %v", wire["parts"])
	}
	part := parts[0].(map[string]any)
	if part["type"] != "text" || part["text"] != "hi" {
		t.Errorf("unexpected wire part: %v", part)
	}
}

func TestContent_UnmarshalRejectsUnknownPart(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"video"}]}`), &c)
	if err == nil {
		t.Fatal("expected an error for an unknown part type")
	}
}
