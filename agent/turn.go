package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/interceptor"
	"github.com/hupe1980/agentloop/model"
)

// turn issues exactly one model call through the pipeline's model chain. It
// assembles the request from instructions, a copy of the history and the
// tool definitions, applies the request hooks in order, and collects the
// response stream into a single result, forwarding partial fragments as
// text-fragment events when streaming is enabled. Retrying is the
// pipeline's concern, never turn's.
func (lr *loopRun) turn(ctx context.Context) (*model.Result, error) {
	a := lr.agent

	instructions, err := a.instruction.Resolve(lr.state)
	if err != nil {
		return nil, fmt.Errorf("resolve instructions: %w", err)
	}

	contents := make([]core.Content, len(lr.history))
	copy(contents, lr.history)

	req := model.Request{
		Instructions: instructions,
		Contents:     contents,
		Tools:        a.toolDefinitions(),
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		Stream:       a.streaming,
	}

	for _, hook := range a.hooks {
		if err := hook(ctx, &req); err != nil {
			return nil, fmt.Errorf("request hook: %w", err)
		}
	}

	call := &interceptor.ModelCall{
		Agent:       a.name,
		ModelName:   a.model.Info().Name,
		Request:     req,
		State:       lr.state,
		Coordinator: lr.coord,
	}

	base := func(ctx context.Context) (*model.Result, error) {
		respCh, errCh := a.model.Generate(ctx, call.Request)

		var onPartial func(model.Response)
		if call.Request.Stream {
			onPartial = func(resp model.Response) {
				if text := resp.Content.Text(); text != "" {
					lr.coord.Emit(core.NewTextFragmentEvent(lr.state.RunID(), a.name, text))
				}
			}
		}

		return model.Collect(ctx, respCh, errCh, onPartial)
	}

	start := time.Now()
	res, err := a.pipeline.Model(ctx, call, base)

	lr.logger.Debug("model call finished",
		"agent", a.name,
		"run_id", lr.state.RunID(),
		"model", call.ModelName,
		"iteration", lr.state.Iteration(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return res, err
}
