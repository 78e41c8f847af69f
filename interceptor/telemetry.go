package interceptor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentloop/model"
)

const tracerName = "github.com/hupe1980/agentloop"

// TelemetryOptions configures the telemetry interceptor.
type TelemetryOptions struct {
	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Telemetry opens an OpenTelemetry span around every model and tool call,
// annotated with the calling agent, the run iteration and call identity.
// Failures are recorded on the span with error status.
type Telemetry struct {
	tracer trace.Tracer
}

// NewTelemetry creates the telemetry interceptor with optional
// configuration.
func NewTelemetry(optFns ...func(o *TelemetryOptions)) *Telemetry {
	opts := TelemetryOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Telemetry{tracer: opts.TracerProvider.Tracer(tracerName)}
}

// InterceptModel traces the model-call continuation.
func (t *Telemetry) InterceptModel(ctx context.Context, call *ModelCall, next ModelFunc) (*model.Result, error) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.name", call.Agent),
		attribute.String("model.name", call.ModelName),
	}
	if call.State != nil {
		attrs = append(attrs,
			attribute.String("run.id", call.State.RunID()),
			attribute.Int("run.iteration", call.State.Iteration()),
		)
	}

	ctx, span := t.tracer.Start(ctx, "agent.model",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	res, err := next(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if res.Usage != nil {
		span.SetAttributes(
			attribute.Int("model.usage.prompt_tokens", res.Usage.PromptTokens),
			attribute.Int("model.usage.completion_tokens", res.Usage.CompletionTokens),
		)
	}

	return res, nil
}

// InterceptTool traces the function-call continuation.
func (t *Telemetry) InterceptTool(ctx context.Context, call *ToolCall, next ToolFunc) (any, error) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.name", call.Agent),
		attribute.String("tool.name", call.Call.Name),
		attribute.String("tool.call_id", call.Call.ID),
	}
	if call.State != nil {
		attrs = append(attrs,
			attribute.String("run.id", call.State.RunID()),
			attribute.Int("run.iteration", call.State.Iteration()),
		)
	}

	ctx, span := t.tracer.Start(ctx, "agent.tool",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	res, err := next(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return res, nil
}
