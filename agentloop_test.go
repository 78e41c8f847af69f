package agentloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

func TestAgentLoop_Chat(t *testing.T) {
	ctx := context.Background()

	m := model.NewMockModel("mock-model")
	m.AddTextTurn("blue, usually")
	m.AddTextTurn("because of Rayleigh scattering")

	l := New()
	l.RegisterAgent(agent.New("Helper", m))

	answer, err := l.Chat(ctx, "Helper", "sess-1", "what color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "blue, usually", answer)

	answer, err = l.Chat(ctx, "Helper", "sess-1", "why?")
	require.NoError(t, err)
	assert.Equal(t, "because of Rayleigh scattering", answer)

	// The follow-up request carried the first exchange.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Contents, 3)

	sess, err := l.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Len())
}

func TestAgentLoop_ChatUnknownAgent(t *testing.T) {
	l := New()

	_, err := l.Chat(context.Background(), "ghost", "sess-1", "hello?")
	require.Error(t, err)
}

func TestAgentLoop_RunAndResolveDelegate(t *testing.T) {
	m := model.NewMockModel("mock-model")
	m.AddTextTurn("done")

	l := New()
	l.RegisterAgent(agent.New("Helper", m))

	run, err := l.Run(context.Background(), "Helper", "sess-1", core.NewTextContent(core.RoleUser, "hi"))
	require.NoError(t, err)

	for range run.Events(context.Background()) {
	}
	require.NoError(t, run.Wait(context.Background()))

	// Finished runs are evicted from the table once persisted.
	require.Eventually(t, func() bool {
		_, ok := l.Runner().GetRun(run.ID())
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	assert.Error(t, l.Cancel(run.ID()))
	assert.Error(t, l.Approve(run.ID(), "corr-1"))
}
