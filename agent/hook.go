package agent

import (
	"context"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// RequestHook mutates an outgoing model request before it enters the
// interceptor pipeline. Hooks run in registration order after the request
// has been assembled from instructions, history and tool definitions. They
// must not perform I/O or block; a returned error aborts the run.
type RequestHook func(ctx context.Context, req *model.Request) error

// TrimHistory returns a hook bounding the conversation window to the last
// max messages. The cut never opens the window on an orphaned tool response:
// leading tool-role messages whose originating call fell outside the window
// are dropped with it.
func TrimHistory(max int) RequestHook {
	return func(_ context.Context, req *model.Request) error {
		if max <= 0 || len(req.Contents) <= max {
			return nil
		}

		cut := len(req.Contents) - max
		for cut < len(req.Contents) && req.Contents[cut].Role == core.RoleTool {
			cut++
		}

		req.Contents = req.Contents[cut:]

		return nil
	}
}

// ClampTemperature returns a hook keeping an explicit request temperature
// within [lo, hi]. Requests without a temperature pass through untouched.
func ClampTemperature(lo, hi float64) RequestHook {
	return func(_ context.Context, req *model.Request) error {
		if req.Temperature == nil {
			return nil
		}

		t := *req.Temperature
		if t < lo {
			t = lo
		}

		if t > hi {
			t = hi
		}

		req.Temperature = &t

		return nil
	}
}
