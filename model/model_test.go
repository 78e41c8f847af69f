package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/agentloop/core"
)

func TestCollect_AggregatesStreamedTurn(t *testing.T) {
	m := NewMockModel("scripted")
	m.AddStreamedTextTurn("Hel", "lo ", "world")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
		Stream:   true,
	})

	var partials []string
	res, err := Collect(context.Background(), respCh, errCh, func(resp Response) {
		partials = append(partials, resp.Content.Text())
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := res.Text(), "Hello world"; got != want {
		t.Errorf("aggregate text = %q, want %q", got, want)
	}
	if got, want := len(partials), 3; got != want {
		t.Fatalf("partial count = %d, want %d", got, want)
	}
	if partials[0] != "Hel" || partials[1] != "lo " || partials[2] != "world" {
		t.Errorf("partials out of order: %v", partials)
	}
	if res.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want %q", res.FinishReason, "stop")
	}
}

func TestCollect_ErrorAbortsCollection(t *testing.T) {
	m := NewMockModel("scripted")
	m.AddErrorTurn(core.NewTransient("test.generate", fmt.Errorf("backend down")))

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
	})

	if _, err := Collect(context.Background(), respCh, errCh, nil); !core.IsRetryable(err) {
		t.Fatalf("expected the transient error back, got %v", err)
	}
}

func TestCollect_MissingFinalIsProtocolError(t *testing.T) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)
	respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, "frag")}
	close(respCh)
	close(errCh)

	_, err := Collect(context.Background(), respCh, errCh, nil)
	if !core.IsProtocol(err) {
		t.Fatalf("expected protocol error for missing final response, got %v", err)
	}
}

func TestMockModel_ScriptedTurnsInOrder(t *testing.T) {
	m := NewMockModel("scripted")
	m.AddToolCallTurn(core.FunctionCall{ID: "call-1", Name: "search", Arguments: `{"query":"golang"}`})
	m.AddTextTurn("done")

	req := Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "find golang")}}

	respCh, errCh := m.Generate(context.Background(), req)
	res, err := Collect(context.Background(), respCh, errCh, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := res.FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "search" {
		t.Fatalf("expected one search call, got %+v", calls)
	}
	if res.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q, want %q", res.FinishReason, "tool_calls")
	}

	respCh, errCh = m.Generate(context.Background(), req)
	res, err = Collect(context.Background(), respCh, errCh, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text() != "done" {
		t.Errorf("second turn text = %q, want %q", res.Text(), "done")
	}

	if m.Calls() != 2 {
		t.Errorf("recorded calls = %d, want 2", m.Calls())
	}
	if reqs := m.Requests(); len(reqs) != 2 || len(reqs[0].Contents) != 1 {
		t.Errorf("recorded requests mismatch: %+v", reqs)
	}
}

func TestMockModel_ExhaustedScriptEchoes(t *testing.T) {
	m := NewMockModel("scripted")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hello")},
	})
	res, err := Collect(context.Background(), respCh, errCh, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := res.Text(), "Mock response to: hello"; got != want {
		t.Errorf("echo text = %q, want %q", got, want)
	}
}

func TestFallback_FailsOverBeforeFirstResponse(t *testing.T) {
	primary := NewMockModel("primary")
	primary.AddErrorTurn(core.NewTransient("test.generate", fmt.Errorf("primary down")))
	standby := NewMockModel("standby")
	standby.AddTextTurn("standby answer")

	fb := NewFallback(primary, standby)
	respCh, errCh := fb.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
	})

	res, err := Collect(context.Background(), respCh, errCh, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text() != "standby answer" {
		t.Errorf("text = %q, want standby answer", res.Text())
	}
	if primary.Calls() != 1 || standby.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.Calls(), standby.Calls())
	}
}

// partialThenErrorModel emits one partial response, then fails mid-stream.
type partialThenErrorModel struct{}

func (partialThenErrorModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)
	respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, "par")}
	errCh <- core.NewTransient("test.generate", fmt.Errorf("mid-stream failure"))
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (partialThenErrorModel) Info() Info { return Info{Name: "partial-then-error", Provider: "test"} }

func TestFallback_CommittedAfterFirstResponse(t *testing.T) {
	standby := NewMockModel("standby")
	standby.AddTextTurn("never used")

	fb := NewFallback(partialThenErrorModel{}, standby)
	respCh, errCh := fb.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
	})

	if _, err := Collect(context.Background(), respCh, errCh, nil); err == nil {
		t.Fatal("expected the mid-stream error to pass through")
	}
	if standby.Calls() != 0 {
		t.Errorf("standby was consulted %d times, want 0", standby.Calls())
	}
}

func TestFallback_CancellationDoesNotFailOver(t *testing.T) {
	primary := NewMockModel("primary")
	primary.AddErrorTurn(fmt.Errorf("run aborted: %w", context.Canceled))
	standby := NewMockModel("standby")
	standby.AddTextTurn("never used")

	fb := NewFallback(primary, standby)
	respCh, errCh := fb.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
	})

	_, err := Collect(context.Background(), respCh, errCh, nil)
	if !core.IsCancelled(err) {
		t.Fatalf("expected cancellation to pass through, got %v", err)
	}
	if standby.Calls() != 0 {
		t.Errorf("standby was consulted %d times, want 0", standby.Calls())
	}
}
