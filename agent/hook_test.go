package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

func TestTrimHistory_UnderLimitIsNoOp(t *testing.T) {
	req := &model.Request{Contents: []core.Content{
		userMsg("one"),
		userMsg("two"),
	}}

	require.NoError(t, TrimHistory(5)(context.Background(), req))

	assert.Len(t, req.Contents, 2)
}

func TestTrimHistory_CutsToWindow(t *testing.T) {
	req := &model.Request{Contents: []core.Content{
		userMsg("one"),
		core.NewTextContent(core.RoleAssistant, "two"),
		userMsg("three"),
		core.NewTextContent(core.RoleAssistant, "four"),
	}}

	require.NoError(t, TrimHistory(2)(context.Background(), req))

	require.Len(t, req.Contents, 2)
	assert.Equal(t, "three", req.Contents[0].Text())
	assert.Equal(t, "four", req.Contents[1].Text())
}

func TestTrimHistory_SkipsOrphanedToolResponses(t *testing.T) {
	req := &model.Request{Contents: []core.Content{
		userMsg("one"),
		assistantCalls(core.FunctionCall{ID: "c1", Name: "lookup"}),
		core.NewFunctionResponseContent("c1", "lookup", "ok", nil),
		core.NewFunctionResponseContent("c2", "lookup", "ok", nil),
		core.NewTextContent(core.RoleAssistant, "summary"),
		userMsg("next"),
	}}

	require.NoError(t, TrimHistory(4)(context.Background(), req))

	// The naive cut would start on a tool response whose call fell outside
	// the window; the hook drops the orphans too.
	require.Len(t, req.Contents, 2)
	assert.Equal(t, core.RoleAssistant, req.Contents[0].Role)
	assert.Equal(t, "summary", req.Contents[0].Text())
	assert.Equal(t, "next", req.Contents[1].Text())
}

func TestClampTemperature_Bounds(t *testing.T) {
	low, high := 0.0, 1.0

	temp := 2.5
	req := &model.Request{Temperature: &temp}

	require.NoError(t, ClampTemperature(low, high)(context.Background(), req))
	assert.Equal(t, 1.0, *req.Temperature)

	temp2 := -0.5
	req = &model.Request{Temperature: &temp2}

	require.NoError(t, ClampTemperature(low, high)(context.Background(), req))
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestClampTemperature_NoTemperaturePassesThrough(t *testing.T) {
	req := &model.Request{}

	require.NoError(t, ClampTemperature(0, 1)(context.Background(), req))
	assert.Nil(t, req.Temperature)
}
