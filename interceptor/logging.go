package interceptor

import (
	"context"
	"time"

	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// Logging records the latency and outcome of every model and tool call
// through a RunLogger. Placed outermost it observes whole logical calls;
// placed inside the retry interceptor it observes each attempt.
type Logging struct {
	logger *logging.RunLogger
}

// NewLogging creates the logging interceptor. A nil logger falls back to the
// default RunLogger configuration.
func NewLogging(logger *logging.RunLogger) *Logging {
	if logger == nil {
		logger = logging.NewRunLogger(nil)
	}

	return &Logging{logger: logger.WithComponent("interceptor")}
}

// InterceptModel times the model-call continuation and logs its outcome.
func (l *Logging) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	start := time.Now()
	res, err := next(ctx)

	logger := l.logger
	if call.State != nil {
		logger = logger.WithRun(call.State.RunID(), call.Agent)
	}

	tokens := 0
	if err == nil && res.Usage != nil {
		tokens = res.Usage.TotalTokens
	}
	logger.LogModelCall(call.ModelName, tokens, time.Since(start), err == nil, err)

	return res, err
}

// InterceptTool times the function-call continuation and logs its outcome.
func (l *Logging) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	start := time.Now()
	res, err := next(ctx)

	logger := l.logger
	if call.State != nil {
		logger = logger.WithRun(call.State.RunID(), call.Agent)
	}
	logger.LogToolCall(call.Call.Name, time.Since(start), err == nil, err)

	return res, err
}
