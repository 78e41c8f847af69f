package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// MockTurn scripts the outcome of one Generate call: optional streamed text
// fragments, the final assistant content, or an error in place of both.
type MockTurn struct {
	Fragments    []string     // Partial chunks emitted before the final response when streaming
	Content      core.Content // Final assistant content
	FinishReason string       // Defaults to "stop"
	Err          error        // When set the turn fails instead of producing content
}

// MockModel is a lightweight in‑memory Model that replays scripted turns in
// order. It records every request it receives so tests can assert on the
// exact sequence of calls the loop issued. Safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	turns    []MockTurn
	requests []Request
}

// NewMockModel constructs an empty MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// AddTurn appends a fully specified scripted turn.
func (m *MockModel) AddTurn(turn MockTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
}

// AddTextTurn scripts a turn that answers with plain assistant text.
func (m *MockModel) AddTextTurn(text string) {
	m.AddTurn(MockTurn{Content: core.NewTextContent(core.RoleAssistant, text)})
}

// AddStreamedTextTurn scripts a turn that streams the given fragments before
// the final joined text.
func (m *MockModel) AddStreamedTextTurn(fragments ...string) {
	m.AddTurn(MockTurn{
		Fragments: fragments,
		Content:   core.NewTextContent(core.RoleAssistant, strings.Join(fragments, "")),
	})
}

// AddToolCallTurn scripts a turn that requests the given tool calls.
func (m *MockModel) AddToolCallTurn(calls ...core.FunctionCall) {
	parts := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: call})
	}
	m.AddTurn(MockTurn{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	})
}

// AddErrorTurn scripts a turn that fails with err.
func (m *MockModel) AddErrorTurn(err error) {
	m.AddTurn(MockTurn{Err: err})
}

// Requests returns a copy of every request passed to Generate so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Calls returns the number of Generate invocations so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// next records the request and pops the next scripted turn, if any remain.
func (m *MockModel) next(req Request) (MockTurn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.turns) == 0 {
		return MockTurn{}, false
	}
	turn := m.turns[0]
	m.turns = m.turns[1:]

	return turn, true
}

// Generate replays the next scripted turn. When the script is exhausted the
// model echoes the last request text so loops still converge naturally.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	turn, ok := m.next(req)
	if !ok {
		turn = MockTurn{Content: core.NewTextContent(core.RoleAssistant, fmt.Sprintf("Mock response to: %s", lastText(req)))}
	}

	go func() {
		defer close(respCh)
		defer close(errCh)

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}
		if req.Stream {
			for _, frag := range turn.Fragments {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, frag),
				}:
				}
			}
		}
		finish := turn.FinishReason
		if finish == "" {
			finish = "stop"
		}
		respCh <- Response{
			Partial:      false,
			Content:      turn.Content,
			FinishReason: finish,
		}
	}()

	return respCh, errCh
}

// lastText extracts the concatenated text of the last request content.
func lastText(req Request) string {
	if len(req.Contents) == 0 {
		return ""
	}
	return req.Contents[len(req.Contents)-1].Text()
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }
