package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// waitRun waits for the run with a test deadline so a broken loop fails the
// test instead of hanging it.
func waitRun(t *testing.T, run *agent.Run) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("run did not finish in time")
	}

	return err
}

func userMsg(text string) core.Content {
	return core.NewTextContent(core.RoleUser, text)
}

// blockingTool returns a tool that signals on started and then holds until
// release closes or the call context ends.
func blockingTool(started chan<- struct{}, release <-chan struct{}) tool.Tool {
	return tool.NewFunctionTool("block", "holds until released", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		started <- struct{}{}
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestNew_Defaults(t *testing.T) {
	r := New()

	assert.NotNil(t, r.sessions)
	assert.Nil(t, r.sem)
	assert.Empty(t, r.ActiveRuns())

	_, ok := r.GetAgent("missing")
	assert.False(t, ok)
}

func TestRunner_RunUnknownAgent(t *testing.T) {
	r := New()

	_, err := r.Run(context.Background(), "ghost", "sess", userMsg("hi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAgentNotFound))
	assert.Contains(t, err.Error(), "ghost")
}

func TestRunner_RunSyncConversationPersists(t *testing.T) {
	ctx := context.Background()

	m := model.NewMockModel("mock-model")
	m.AddTextTurn("four")
	m.AddTextTurn("as I said, four")

	r := New()
	r.Register(agent.New("Helper", m))

	events, err := r.RunSync(ctx, "Helper", "sess-1", userMsg("what is 2+2?"))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventRunTerminated, events[len(events)-1].Kind)
	assert.Equal(t, core.ReasonNaturalCompletion, events[len(events)-1].Reason)

	events, err = r.RunSync(ctx, "Helper", "sess-1", userMsg("repeat that"))
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// The second request carries the persisted first exchange.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].Contents, 3)
	assert.Equal(t, "what is 2+2?", reqs[1].Contents[0].Text())
	assert.Equal(t, "four", reqs[1].Contents[1].Text())
	assert.Equal(t, "repeat that", reqs[1].Contents[2].Text())

	sess, err := r.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Len())
}

func TestRunner_EmptySessionIDStartsFreshConversation(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddTextTurn("hello there")

	r := New()
	r.Register(agent.New("Helper", m))

	run, err := r.Run(context.Background(), "Helper", "", userMsg("hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, run.SessionID())

	require.NoError(t, waitRun(t, run))

	// Allow the finalizer to persist before checking the store.
	require.Eventually(t, func() bool {
		sess, err := r.Session(context.Background(), run.SessionID())
		return err == nil && sess.Len() == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunner_CancelByID(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddToolCallTurn(core.FunctionCall{ID: "c1", Name: "block", Arguments: "{}"})

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	defer close(release)

	r := New()
	r.Register(agent.New("Helper", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{blockingTool(started, release)}
	}))

	run, err := r.Run(context.Background(), "Helper", "sess-1", userMsg("hold on"))
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool never started")
	}

	assert.Contains(t, r.ActiveRuns(), run.ID())

	require.NoError(t, r.Cancel(run.ID()))

	err = waitRun(t, run)
	require.Error(t, err)
	assert.True(t, core.IsCancelled(err))

	require.Eventually(t, func() bool {
		_, ok := r.GetRun(run.ID())
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, errors.Is(r.Cancel(run.ID()), ErrRunNotFound))
}

func TestRunner_ApprovalRoutedByRunID(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddToolCallTurn(core.FunctionCall{ID: "c1", Name: "wipe", Arguments: "{}"})
	m.AddTextTurn("all clean")

	executed := 0

	wipe := tool.NewFunctionTool("wipe", "wipes the cache", nil, func(context.Context, map[string]any) (any, error) {
		executed++
		return "ok", nil
	}, func(o *tool.FunctionToolOptions) {
		o.RequiresApproval = true
	})

	r := New()
	r.Register(agent.New("Helper", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{wipe}
	}))

	run, err := r.Run(context.Background(), "Helper", "sess-1", userMsg("wipe the cache"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	approvals := 0
	for ev := range run.Events(ctx) {
		if ev.Kind == core.EventApprovalRequested {
			approvals++
			require.NoError(t, r.Approve(run.ID(), ev.CorrelationID))
		}
	}

	require.NoError(t, waitRun(t, run))
	assert.Equal(t, 1, approvals)
	assert.Equal(t, 1, executed)
}

func TestRunner_ResolveUnknownRun(t *testing.T) {
	r := New()
	assert.True(t, errors.Is(r.Approve("nope", "corr"), ErrRunNotFound))
}

func TestRunner_ConcurrencyCeiling(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddToolCallTurn(core.FunctionCall{ID: "c1", Name: "block", Arguments: "{}"})

	started := make(chan struct{}, 1)
	release := make(chan struct{})

	r := New(func(o *Options) {
		o.MaxConcurrentRuns = 1
	})
	r.Register(agent.New("Helper", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{blockingTool(started, release)}
	}))

	first, err := r.Run(context.Background(), "Helper", "sess-a", userMsg("go"))
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool never started")
	}

	// The only slot is taken; a second start must give up with its context.
	shortCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = r.Run(shortCtx, "Helper", "sess-b", userMsg("me too"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(release)
	require.NoError(t, waitRun(t, first))

	// Slot freed after completion; the next run starts within its deadline.
	m.AddTextTurn("quick answer")

	nextCtx, cancelNext := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelNext()

	second, err := r.Run(nextCtx, "Helper", "sess-c", userMsg("now?"))
	require.NoError(t, err)
	require.NoError(t, waitRun(t, second))
}

func TestRunner_RunOptionsPassThrough(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddTextTurn("done")

	r := New()
	r.Register(agent.New("Helper", m))

	run, err := r.Run(context.Background(), "Helper", "sess-1", userMsg("hi"), func(o *agent.RunOptions) {
		o.RunID = "run-custom"
		o.SessionID = "ignored"
	})
	require.NoError(t, err)

	assert.Equal(t, "run-custom", run.ID())
	assert.Equal(t, "sess-1", run.SessionID())

	require.NoError(t, waitRun(t, run))
}

func TestRunner_RegisterReplaces(t *testing.T) {
	m1 := model.NewMockModel("m1")
	m2 := model.NewMockModel("m2")

	r := New()
	r.Register(agent.New("Helper", m1))
	r.Register(agent.New("Helper", m2))

	a, ok := r.GetAgent("Helper")
	require.True(t, ok)
	assert.Equal(t, m2, a.Model())
}
