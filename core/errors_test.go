package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestErrors_Classification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"fatal", NewFatal("model.generate", errors.New("bad request")), KindFatal},
		{"transient", NewTransient("model.generate", errors.New("connection reset")), KindTransient},
		{"rate limit", NewRateLimit("model.generate", errors.New("429"), time.Second), KindRateLimit},
		{"timeout", NewTimeout("await", "no resolution"), KindTimeout},
		{"protocol", NewProtocol("await", "duplicate id"), KindProtocol},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"unknown", errors.New("mystery"), KindFatal},
		{"wrapped agent error", fmt.Errorf("outer: %w", NewTransient("tool.call", io.EOF)), KindTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.kind {
				t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.kind)
			}
		})
	}
}

func TestErrors_Predicates(t *testing.T) {
	if !IsFatal(errors.New("unclassified")) {
		t.Error("unclassified errors should be fatal")
	}
	if !IsRetryable(NewTransient("op", nil)) || !IsRetryable(NewRateLimit("op", nil, 0)) {
		t.Error("transient and rate-limit errors should be retryable")
	}
	if IsRetryable(NewFatal("op", nil)) || IsRetryable(NewTimeout("op", "late")) {
		t.Error("fatal and timeout errors should not be retryable")
	}
	if !IsTimeout(NewTimeout("op", "late")) {
		t.Error("IsTimeout should match KindTimeout")
	}
	if !IsProtocol(NewProtocol("op", "dup")) {
		t.Error("IsProtocol should match KindProtocol")
	}
	if !IsCancelled(fmt.Errorf("await: %w", context.Canceled)) {
		t.Error("IsCancelled should see through wrapping")
	}
	if IsCancelled(NewFatal("op", nil)) {
		t.Error("IsCancelled should not match unrelated errors")
	}
}

func TestErrors_RetryAfterHint(t *testing.T) {
	if _, ok := RetryAfterHint(NewTransient("op", nil)); ok {
		t.Error("transient error should carry no hint")
	}

	d, ok := RetryAfterHint(NewRateLimit("op", nil, 3*time.Second))
	if !ok || d != 3*time.Second {
		t.Errorf("expected 3s hint, got %v %v", d, ok)
	}

	wrapped := fmt.Errorf("attempt 2: %w", NewRateLimit("op", nil, time.Second))
	if d, ok := RetryAfterHint(wrapped); !ok || d != time.Second {
		t.Errorf("hint should survive wrapping, got %v %v", d, ok)
	}
}

func TestErrors_UnwrapChain(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := NewTransient("model.generate", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}

	var ae *AgentError
	if !errors.As(fmt.Errorf("outer: %w", err), &ae) {
		t.Fatal("errors.As should find the AgentError")
	}
	if ae.Op != "model.generate" {
		t.Errorf("unexpected op: %s", ae.Op)
	}
}

func TestErrors_MessageFormat(t *testing.T) {
	err := NewRateLimit("model.generate", errors.New("too many requests"), time.Second)
	msg := err.Error()
	if msg == "" || msg != "model.generate [rate_limit]: too many requests" {
		t.Errorf("unexpected message: %q", msg)
	}

	bare := NewTimeout("await", "no resolution for id")
	if bare.Error() != "await [timeout]: no resolution for id" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}
