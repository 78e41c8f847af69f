package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/testutil"
)

func TestNewSession(t *testing.T) {
	sess := NewSession("sess-1")

	assert.Equal(t, "sess-1", sess.ID)
	assert.Empty(t, sess.Messages)
	assert.Empty(t, sess.State)
	assert.False(t, sess.Created.IsZero())
	assert.Equal(t, sess.Created, sess.Updated)
}

func TestSession_AppendAndHistory(t *testing.T) {
	sess := NewSession("sess-1")
	before := sess.Updated

	sess.Append(core.NewTextContent(core.RoleUser, "hello"))
	sess.Append(core.NewTextContent(core.RoleAssistant, "hi there"))

	require.Equal(t, 2, sess.Len())
	history := sess.History()
	assert.Equal(t, "hello", history[0].Text())
	assert.Equal(t, "hi there", history[1].Text())
	assert.True(t, sess.Updated.After(before) || sess.Updated.Equal(before))

	// The returned slice is a copy; mutating it must not leak back.
	history[0] = core.NewTextContent(core.RoleUser, "tampered")
	assert.Equal(t, "hello", sess.History()[0].Text())
}

func TestSession_SetMessagesReplacesHistory(t *testing.T) {
	sess := NewSession("sess-1")
	sess.Append(core.NewTextContent(core.RoleUser, "old"))

	sess.SetMessages(testutil.NewHistory().User("question").Assistant("answer").Build())

	require.Equal(t, 2, sess.Len())
	assert.Equal(t, "question", sess.History()[0].Text())
}

func TestSession_State(t *testing.T) {
	sess := NewSession("sess-1")

	_, ok := sess.GetState("missing")
	assert.False(t, ok)

	sess.SetState("topic", "weather")
	v, ok := sess.GetState("topic")
	require.True(t, ok)
	assert.Equal(t, "weather", v)

	sess.ApplyStateDelta(map[string]any{"topic": "sports", "lang": "en"})
	v, _ = sess.GetState("topic")
	assert.Equal(t, "sports", v)
	v, _ = sess.GetState("lang")
	assert.Equal(t, "en", v)
}

func TestSession_CloneDiverges(t *testing.T) {
	sess := NewSession("sess-1")
	sess.Append(core.NewTextContent(core.RoleUser, "original"))
	sess.SetState("k", "v")

	clone := sess.Clone()
	clone.Append(core.NewTextContent(core.RoleAssistant, "extra"))
	clone.SetState("k", "changed")

	assert.Equal(t, 1, sess.Len())
	v, _ := sess.GetState("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, 2, clone.Len())
}

func TestSession_JSONRoundTrip(t *testing.T) {
	sess := NewSession("sess-json")
	sess.Append(testutil.NewHistory().
		User("look this up").
		AssistantCall("c1", "lookup", `{"q":"go"}`).
		ToolResult("c1", "lookup", "found it", nil).
		Assistant("here you go").
		Build()...)
	sess.SetState("topic", "search")

	raw, err := json.Marshal(sess)
	require.NoError(t, err)

	var decoded Session
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, sess.ID, decoded.ID)
	require.Equal(t, 4, decoded.Len())
	history := decoded.History()
	calls := history[1].FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Name)
	responses := history[2].FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "found it", responses[0].Response)
	v, ok := decoded.GetState("topic")
	require.True(t, ok)
	assert.Equal(t, "search", v)
}
