package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/model"
)

// recorder notes its tag on entry so tests can observe chain order.
type recorder struct {
	tag   string
	trace *[]string
}

func (r *recorder) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	*r.trace = append(*r.trace, r.tag+":model")
	return next(ctx)
}

func (r *recorder) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	*r.trace = append(*r.trace, r.tag+":tool")
	return next(ctx)
}

func TestPipeline_LastRegisteredRunsFirst(t *testing.T) {
	var trace []string
	p := NewPipeline(
		&recorder{tag: "inner", trace: &trace},
		&recorder{tag: "outer", trace: &trace},
	)

	res, err := p.Model(context.Background(), &ModelCall{}, func(ctx context.Context) (*model.Result, error) {
		trace = append(trace, "base")
		return &model.Result{FinishReason: "stop"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, []string{"outer:model", "inner:model", "base"}, trace)
}

func TestPipeline_OneRegistrationServesBothChains(t *testing.T) {
	var trace []string
	p := NewPipeline(&recorder{tag: "shared", trace: &trace})

	_, err := p.Model(context.Background(), &ModelCall{}, func(ctx context.Context) (*model.Result, error) {
		return &model.Result{}, nil
	})
	require.NoError(t, err)

	res, err := p.Tool(context.Background(), &ToolCall{}, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", res)
	assert.Equal(t, []string{"shared:model", "shared:tool"}, trace)
}

type instructionTagger struct{ PassThrough }

func (instructionTagger) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	call.Request.Instructions = "tagged: " + call.Request.Instructions
	return next(ctx)
}

func TestPipeline_RequestMutationVisibleToBase(t *testing.T) {
	p := NewPipeline(instructionTagger{})
	call := &ModelCall{Request: model.Request{Instructions: "be helpful"}}

	var seen string
	_, err := p.Model(context.Background(), call, func(ctx context.Context) (*model.Result, error) {
		seen = call.Request.Instructions
		return &model.Result{}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "tagged: be helpful", seen)
}

type cachedResult struct{ PassThrough }

func (cachedResult) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	return "cached", nil
}

func TestPipeline_ShortCircuitSkipsBase(t *testing.T) {
	baseCalled := false
	p := NewPipeline(cachedResult{})

	res, err := p.Tool(context.Background(), &ToolCall{}, func(ctx context.Context) (any, error) {
		baseCalled = true
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "cached", res)
	assert.False(t, baseCalled)
}

func TestPipeline_EmptyRunsBaseDirectly(t *testing.T) {
	p := NewPipeline()

	res, err := p.Tool(context.Background(), &ToolCall{}, func(ctx context.Context) (any, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 0, p.Len())
}

func TestNewPipeline_SkipsNilInterceptors(t *testing.T) {
	p := NewPipeline(nil, PassThrough{}, nil)
	assert.Equal(t, 1, p.Len())
}

func TestPassThrough_ForwardsBothChains(t *testing.T) {
	p := NewPipeline(PassThrough{})

	res, err := p.Model(context.Background(), &ModelCall{}, func(ctx context.Context) (*model.Result, error) {
		return &model.Result{FinishReason: "stop"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stop", res.FinishReason)

	out, err := p.Tool(context.Background(), &ToolCall{}, func(ctx context.Context) (any, error) {
		return "ran", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ran", out)
}
