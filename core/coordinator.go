package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultEventBuffer sets the channel buffer size for the outbox drain.
// Larger buffers reduce blocking but increase memory usage.
const DefaultEventBuffer = 100

// ApprovalDecision is the value an external actor resolves an
// approval-requested correlation id with.
type ApprovalDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// PendingInfo describes one registered correlation entry for inspection.
type PendingInfo struct {
	CorrelationID string    `json:"correlation_id"`
	Type          string    `json:"type"`     // Expected response type tag
	Deadline      time.Time `json:"deadline"` // When the await gives up
}

// pendingRequest is the suspension handle behind one Await call. The
// completion channel is buffered so Resolve never blocks on delivery.
type pendingRequest struct {
	id       string
	typeTag  string
	deadline time.Time
	done     chan any
}

// Coordinator is the per-run event and correlation hub. It owns an
// unbounded ordered outbox of events waiting to be observed and a map of
// correlation id to pending request. Emit appends and never suspends;
// Await suspends the calling task until Resolve delivers a value, the
// per-call timeout elapses, or the context is cancelled; Resolve may be
// called from any goroutine, typically by the consumer of the outbox.
//
// A coordinator may hold a non-owning reference to the root coordinator of
// the outermost agent in a nested-invocation tree. Every emitted event is
// then also appended to the root's outbox (bubbling), so the top-level
// consumer observes nested activity without draining nested coordinators.
// Correlation requests delegate to the root the same way: Await registers on
// the root and Resolve routes through it, so the consumer that observes a
// bubbled approval request can answer it on the coordinator it holds.
//
// The outbox and the correlation map are the only concurrently mutated
// structures in the loop; both are guarded here.
type Coordinator struct {
	mu      sync.Mutex
	outbox  []Event
	pending map[string]*pendingRequest
	root    *Coordinator
	closed  bool

	notify chan struct{}

	drainOnce sync.Once
	drainCh   chan Event
}

// CoordinatorOptions configures a new Coordinator.
type CoordinatorOptions struct {
	// Root is the coordinator of the outermost agent in the invocation tree.
	// Leave nil (or set to the coordinator itself) for root coordinators.
	Root *Coordinator
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(optFns ...func(o *CoordinatorOptions)) *Coordinator {
	opts := CoordinatorOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Coordinator{
		pending: make(map[string]*pendingRequest),
		root:    opts.Root,
		notify:  make(chan struct{}, 1),
	}
}

// Root returns the bubbling target, or nil for root coordinators.
func (c *Coordinator) Root() *Coordinator { return c.root }

// Emit appends the event to this coordinator's outbox and, when a different
// root coordinator is attached, to the root's outbox as well. It never
// suspends and is safe to call from any goroutine. Events emitted after
// Close are dropped.
func (c *Coordinator) Emit(ev Event) {
	c.enqueue(ev)
	if c.root != nil && c.root != c {
		c.root.enqueue(ev)
	}
}

func (c *Coordinator) enqueue(ev Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.outbox = append(c.outbox, ev)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Outbox returns a copy of the events currently waiting to be drained.
// Events already delivered through Events are no longer included.
func (c *Coordinator) Outbox() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, len(c.outbox))
	copy(out, c.outbox)

	return out
}

// Events starts draining the outbox into an ordered channel. Draining is
// continuous and independent of any pending Await, which is what keeps a
// suspended nested tool call from blocking the consumer that is supposed to
// observe (and answer) its approval request. The channel closes after Close
// once the outbox is empty, or when ctx is cancelled.
//
// The coordinator supports a single consumer: repeated calls return the
// channel created by the first call.
func (c *Coordinator) Events(ctx context.Context) <-chan Event {
	c.drainOnce.Do(func() {
		c.drainCh = make(chan Event, DefaultEventBuffer)
		go c.drain(ctx, c.drainCh)
	})

	return c.drainCh
}

func (c *Coordinator) drain(ctx context.Context, out chan<- Event) {
	defer close(out)

	for {
		c.mu.Lock()
		batch := c.outbox
		c.outbox = nil
		closed := c.closed
		c.mu.Unlock()

		for _, ev := range batch {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		if closed {
			// Re-check: events may have been enqueued between the batch
			// grab and the close flag read.
			c.mu.Lock()
			empty := len(c.outbox) == 0
			c.mu.Unlock()
			if empty {
				return
			}
			continue
		}

		select {
		case <-c.notify:
		case <-ctx.Done():
			return
		}
	}
}

// Close marks the coordinator as finished. Pending drains flush the
// remaining outbox and stop; later emissions are dropped. Close is
// idempotent. Suspended Await calls are not interrupted by Close; they
// run to their own timeout or cancellation.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// register installs a pending request for the correlation id. A second
// registration while the first is still live is correlation misuse.
func (c *Coordinator) register(id, typeTag string, deadline time.Time) (*pendingRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[id]; exists {
		return nil, NewProtocol("await", fmt.Sprintf("correlation id %q already has a pending await", id))
	}

	p := &pendingRequest{
		id:       id,
		typeTag:  typeTag,
		deadline: deadline,
		done:     make(chan any, 1),
	}
	c.pending[id] = p

	return p, nil
}

// unregister drops the pending entry if it is still the given request.
func (c *Coordinator) unregister(p *pendingRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.pending[p.id]; ok && cur == p {
		delete(c.pending, p.id)
	}
}

// Resolve delivers a value to the pending request registered under the
// correlation id, unblocking exactly one waiting Await. An unknown or
// already-resolved id is a no-op, so stray resolutions after a timeout are
// harmless.
func (c *Coordinator) Resolve(id string, value any) {
	if c.root != nil && c.root != c {
		c.root.Resolve(id, value)
		return
	}

	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		p.done <- value
	}
}

// Pending returns a snapshot of the currently registered correlation
// entries.
func (c *Coordinator) Pending() []PendingInfo {
	if c.root != nil && c.root != c {
		return c.root.Pending()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PendingInfo, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, PendingInfo{CorrelationID: p.id, Type: p.typeTag, Deadline: p.deadline})
	}

	return out
}

// AwaitValue suspends the calling task until the correlation id is resolved,
// the timeout elapses (KindTimeout, entry removed), or ctx is cancelled
// (entry removed; the context's error is returned wrapped). The timeout is
// strictly per-call: it shares nothing with ctx, so one await timing out
// cannot disturb sibling awaits.
func (c *Coordinator) AwaitValue(ctx context.Context, id string, timeout time.Duration) (any, error) {
	return c.await(ctx, id, "any", timeout)
}

func (c *Coordinator) await(ctx context.Context, id, typeTag string, timeout time.Duration) (any, error) {
	if c.root != nil && c.root != c {
		return c.root.await(ctx, id, typeTag, timeout)
	}

	p, err := c.register(id, typeTag, time.Now().Add(timeout))
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-p.done:
		return v, nil
	case <-timer.C:
		c.unregister(p)
		return nil, NewTimeout("await", fmt.Sprintf("no resolution for correlation id %q within %s", id, timeout))
	case <-ctx.Done():
		c.unregister(p)
		return nil, fmt.Errorf("await %q: %w", id, ctx.Err())
	}
}

// Await is the typed form of AwaitValue. A resolved value that is not
// assignable to T surfaces as a protocol error: the request was answered,
// but by a caller that does not speak the expected type.
func Await[T any](ctx context.Context, c *Coordinator, id string, timeout time.Duration) (T, error) {
	var zero T

	v, err := c.await(ctx, id, fmt.Sprintf("%T", zero), timeout)
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, NewProtocol("await", fmt.Sprintf("correlation id %q resolved with %T, want %T", id, v, zero))
	}

	return t, nil
}
