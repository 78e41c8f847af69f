package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes a failure for retry and termination decisions.
type ErrorKind string

// Error kinds recognized by the loop. Retry policy keys off this
// classification: fatal and protocol errors abort the run immediately,
// transient and rate-limit errors are retryable, timeouts surface "no answer
// yet" distinctly from backend failure.
const (
	KindFatal     ErrorKind = "fatal"      // Never retried, terminates the run
	KindTransient ErrorKind = "transient"  // Network/service hiccup, retried with backoff
	KindRateLimit ErrorKind = "rate_limit" // Provider throttling, retried with longer backoff
	KindTimeout   ErrorKind = "timeout"    // An await or call exceeded its deadline
	KindProtocol  ErrorKind = "protocol"   // Correlation misuse or type mismatch, a caller bug
)

// AgentError is the typed error shared by every layer of the loop. It wraps
// an optional cause and carries the classification the retry interceptor and
// the loop's termination logic act on. RetryAfter is a provider-supplied
// backoff hint, only meaningful for KindRateLimit.
type AgentError struct {
	Kind       ErrorKind     `json:"kind"`
	Op         string        `json:"op"` // Failing operation, e.g. "model.generate" or "await"
	Message    string        `json:"message,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Err        error         `json:"-"`
}

func (e *AgentError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	}
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *AgentError) Unwrap() error { return e.Err }

// NewError creates an AgentError of the given kind wrapping err (which may
// be nil).
func NewError(kind ErrorKind, op string, err error) *AgentError {
	return &AgentError{Kind: kind, Op: op, Err: err}
}

// NewFatal creates a non-retryable error that terminates the run.
func NewFatal(op string, err error) *AgentError {
	return NewError(KindFatal, op, err)
}

// NewTransient creates a retryable error for transient service failures.
func NewTransient(op string, err error) *AgentError {
	return NewError(KindTransient, op, err)
}

// NewRateLimit creates a retryable throttling error. retryAfter carries the
// provider's hint when one was supplied, zero otherwise.
func NewRateLimit(op string, err error, retryAfter time.Duration) *AgentError {
	return &AgentError{Kind: KindRateLimit, Op: op, Err: err, RetryAfter: retryAfter}
}

// NewTimeout creates a deadline-exceeded error for the given operation.
func NewTimeout(op, message string) *AgentError {
	return &AgentError{Kind: KindTimeout, Op: op, Message: message}
}

// NewProtocol creates a protocol error indicating correlation misuse or a
// response type mismatch. These indicate caller bugs and are never retried.
func NewProtocol(op, message string) *AgentError {
	return &AgentError{Kind: KindProtocol, Op: op, Message: message}
}

// KindOf classifies an arbitrary error. AgentError values report their own
// kind; context deadline errors map to KindTimeout; everything else is
// treated as fatal (unknown failures are never retried).
func KindOf(err error) ErrorKind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindFatal
}

// IsFatal reports whether err terminates the run without retry.
func IsFatal(err error) bool { return KindOf(err) == KindFatal }

// IsRetryable reports whether the retry interceptor may re-attempt after err.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindTransient || k == KindRateLimit
}

// IsTimeout reports whether err represents an elapsed deadline.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsProtocol reports whether err represents correlation misuse.
func IsProtocol(err error) bool { return KindOf(err) == KindProtocol }

// IsCancelled reports whether err stems from context cancellation rather
// than a failure of the operation itself.
func IsCancelled(err error) bool { return errors.Is(err, context.Canceled) }

// RetryAfterHint extracts a provider-supplied backoff hint, reporting false
// when err carries none.
func RetryAfterHint(err error) (time.Duration, bool) {
	var ae *AgentError
	if errors.As(err, &ae) && ae.RetryAfter > 0 {
		return ae.RetryAfter, true
	}
	return 0, false
}
