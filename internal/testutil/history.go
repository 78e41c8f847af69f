package testutil

import (
	"github.com/hupe1980/agentloop/core"
)

// History provides a fluent helper for constructing conversation histories
// in tests.
// Example:
//
//	history := testutil.NewHistory().
//		User("look this up").
//		AssistantCall("c1", "lookup", `{"q":"go"}`).
//		ToolResult("c1", "lookup", "found", nil).
//		Assistant("here you go").
//		Build()
//
// Chain only the turns you need.
type History struct {
	contents []core.Content
}

// NewHistory creates an empty history builder.
func NewHistory() *History { return &History{} }

// User appends a user text message (chainable).
func (h *History) User(text string) *History {
	h.contents = append(h.contents, core.NewTextContent(core.RoleUser, text))
	return h
}

// Assistant appends an assistant text message (chainable).
func (h *History) Assistant(text string) *History {
	h.contents = append(h.contents, core.NewTextContent(core.RoleAssistant, text))
	return h
}

// AssistantCall appends an assistant message requesting one function call
// (chainable).
func (h *History) AssistantCall(id, name, args string) *History {
	h.contents = append(h.contents, core.Content{
		Role: core.RoleAssistant,
		Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}},
		},
	})
	return h
}

// ToolResult appends a tool-role function response (chainable). A non-nil err
// lands in the response's Error field.
func (h *History) ToolResult(id, name string, result any, err error) *History {
	h.contents = append(h.contents, core.NewFunctionResponseContent(id, name, result, err))
	return h
}

// Content appends an arbitrary prebuilt message (chainable).
func (h *History) Content(c core.Content) *History {
	h.contents = append(h.contents, c)
	return h
}

// Build returns the assembled history.
func (h *History) Build() []core.Content {
	out := make([]core.Content, len(h.contents))
	copy(out, h.contents)
	return out
}
