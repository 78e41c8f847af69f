package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by one loop turn.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt for this call
	Contents     []core.Content   `json:"contents"`     // Ordered conversation history
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"` // Overrides the adapter default when non-nil
	MaxTokens    int64            `json:"max_tokens,omitempty"`  // Caps the completion length when positive
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Result is the aggregate outcome of one model call after its stream has
// been drained: the final content of the turn plus finish reason and token
// usage when the provider reported them.
type Result struct {
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Text returns the concatenated text parts of the result content.
func (r *Result) Text() string { return r.Content.Text() }

// FunctionCalls returns the tool calls the model requested this turn in the
// order the provider reported them.
func (r *Result) FunctionCalls() []core.FunctionCall { return r.Content.FunctionCalls() }

// Collect drains one Generate stream into a Result. Partial responses are
// handed to onPartial (when non-nil) as they arrive; the last non-partial
// response supplies the aggregate. A provider error aborts collection and is
// returned as-is so classification survives. A stream that ends without a
// final response is a protocol violation by the provider.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error, onPartial func(Response)) (*Result, error) {
	var final *Response

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("model.collect: %w", ctx.Err())
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if onPartial != nil {
					onPartial(resp)
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if final == nil {
		return nil, core.NewProtocol("model.collect", "stream ended without a final response")
	}

	return &Result{Content: final.Content, FinishReason: final.FinishReason, Usage: final.Usage}, nil
}
