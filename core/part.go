package core

import (
	"encoding/json"
	"fmt"
)

// Conversation roles attached to Content values. History presented to the
// model is an ordered sequence of role-tagged messages using these values.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g., JSON object map). Approval
// requests and other control payloads travel as DataPart values.
type DataPart struct {
	Data     map[string]any // Structured key/value payload
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// FunctionCall describes a tool/function invocation requested by the model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Call identifier (assigned when the provider omits one)
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Successful result (any shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool, system)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewTextContent constructs a single-text-part Content with the given role.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewFunctionResponseContent wraps one function response as a tool-role
// message so the model observes the outcome on the next turn. A non-nil err
// is copied into the response's Error field.
func NewFunctionResponseContent(id, name string, result any, err error) Content {
	fr := FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	return Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
}

// Text concatenates all text parts of the content preserving order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// FunctionCalls returns any FunctionCall parts contained within the content
// preserving their original order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns any FunctionResponse parts contained within the
// content preserving their original order.
func (c Content) FunctionResponses() []FunctionResponse {
	var responses []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// Part type discriminators used in the JSON wire form.
const (
	partTypeText             = "text"
	partTypeData             = "data"
	partTypeFunctionCall     = "function_call"
	partTypeFunctionResponse = "function_response"
)

// partEnvelope is the serialized form of a single Part. Type selects which
// payload field is populated so heterogeneous part slices survive a JSON
// round trip.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

type contentEnvelope struct {
	Role  string         `json:"role,omitempty"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON encodes the content with a type tag per part. Session stores
// and event consumers rely on this to persist conversation history.
func (c Content) MarshalJSON() ([]byte, error) {
	env := contentEnvelope{Role: c.Role, Parts: make([]partEnvelope, len(c.Parts))}
	for i, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			env.Parts[i] = partEnvelope{Type: partTypeText, Text: v.Text, Metadata: v.Metadata}
		case DataPart:
			env.Parts[i] = partEnvelope{Type: partTypeData, Data: v.Data, Metadata: v.Metadata}
		case FunctionCallPart:
			fc := v.FunctionCall
			env.Parts[i] = partEnvelope{Type: partTypeFunctionCall, FunctionCall: &fc, Metadata: v.Metadata}
		case FunctionResponsePart:
			fr := v.FunctionResponse
			env.Parts[i] = partEnvelope{Type: partTypeFunctionResponse, FunctionResponse: &fr, Metadata: v.Metadata}
		default:
			return nil, fmt.Errorf("cannot marshal part of type %T", p)
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the type-tagged wire form produced by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	c.Role = env.Role
	c.Parts = nil
	for _, pe := range env.Parts {
		switch pe.Type {
		case partTypeText:
			c.Parts = append(c.Parts, TextPart{Text: pe.Text, Metadata: pe.Metadata})
		case partTypeData:
			c.Parts = append(c.Parts, DataPart{Data: pe.Data, Metadata: pe.Metadata})
		case partTypeFunctionCall:
			var fc FunctionCall
			if pe.FunctionCall != nil {
				fc = *pe.FunctionCall
			}
			c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: fc, Metadata: pe.Metadata})
		case partTypeFunctionResponse:
			var fr FunctionResponse
			if pe.FunctionResponse != nil {
				fr = *pe.FunctionResponse
			}
			c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: fr, Metadata: pe.Metadata})
		default:
			return fmt.Errorf("unknown part type %q", pe.Type)
		}
	}
	return nil
}
