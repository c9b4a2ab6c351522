package executor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lion.run/lion/capability"
	"lion.run/lion/ids"
	"lion.run/lion/telemetry"
)

// HostCaller performs one mediated host call on behalf of in-process plugin
// code and returns the (possibly narrowed) capability the call is permitted
// under, or an error if denied.
type HostCaller func(ctx context.Context, call HostCallRequest) (capability.Capability, error)

// Emitter streams one partial-output chunk back to the execution's event
// stream.
type Emitter func(chunk []byte)

// Handler is plugin code registered directly into the host process. It
// receives a HostCaller to mediate any host access and an Emitter for
// streaming partial output, and returns the final result bytes.
type Handler func(ctx context.Context, req Request, call HostCaller, emit Emitter) ([]byte, error)

// InProcessActor dispatches Requests to Handlers registered by name, running
// them in the host's own goroutines. This is the cheapest and least isolated
// sandbox kind: it trusts the handler's code the way the host trusts its own
// binary, so every host call it makes MUST still go through the mediator
// (§4.6 — isolation level varies by kind, mediation does not).
//
// The functional-options construction and per-execution span follow the
// registry-backed tool executor this kernel's host-call surface is modeled
// on.
type InProcessActor struct {
	handlers map[string]Handler
	mediator *HostCallMediator
	tracer   telemetry.Tracer
	logger   telemetry.Logger
}

// InProcessOption configures an InProcessActor at construction.
type InProcessOption func(*InProcessActor)

func WithInProcessTracer(t telemetry.Tracer) InProcessOption {
	return func(a *InProcessActor) { a.tracer = t }
}
func WithInProcessLogger(l telemetry.Logger) InProcessOption {
	return func(a *InProcessActor) { a.logger = l }
}

// NewInProcessActor constructs an InProcessActor whose host calls are all
// mediated through gate.
func NewInProcessActor(gate *HostCallMediator, opts ...InProcessOption) *InProcessActor {
	a := &InProcessActor{
		handlers: make(map[string]Handler),
		mediator: gate,
		tracer:   telemetry.NewNoopTracer(),
		logger:   telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register binds name to handler. Requests are dispatched to name taken
// from their input framing by the caller (see Execute); this package leaves
// the name-to-request mapping to the caller via the name parameter of
// ExecuteNamed.
func (a *InProcessActor) Register(name string, handler Handler) {
	a.handlers[name] = handler
}

func (*InProcessActor) Kind() Kind { return KindInProcess }

// Execute looks up req's handler by its CallerPlugin-scoped action name,
// which callers pass via ExecuteNamed; plain Execute exists to satisfy Actor
// and requires the handler to have been registered under the plugin's own
// ID string.
func (a *InProcessActor) Execute(ctx context.Context, req Request) (<-chan ExecutionEvent, error) {
	return a.ExecuteNamed(ctx, req.Plugin.String(), req)
}

// ExecuteNamed runs the handler registered under name against req.
func (a *InProcessActor) ExecuteNamed(ctx context.Context, name string, req Request) (<-chan ExecutionEvent, error) {
	handler, ok := a.handlers[name]
	if !ok {
		return nil, fmt.Errorf("executor: no in-process handler registered for %q", name)
	}

	ctx, span := a.tracer.Start(ctx, "executor.in_process.execute", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("executor.handler", name),
			attribute.String("executor.task_id", req.TaskID.String()),
		))

	out := make(chan ExecutionEvent, 4)
	out <- ExecutionEvent{Kind: EventStarted}

	emit := func(chunk []byte) {
		out <- ExecutionEvent{Kind: EventPartialOutput, Chunk: chunk}
	}

	call := func(callCtx context.Context, hc HostCallRequest) (capability.Capability, error) {
		out <- ExecutionEvent{Kind: EventHostCallRequested, HostCall: &hc}
		correlation := ids.CorrelationID(ids.Nil)
		constraints, err := a.mediator.Mediate(callCtx, req.Plugin, hc, correlation)
		if err != nil {
			a.logger.Warn(callCtx, "host call denied", "plugin", req.Plugin.String(), "action", hc.Action, "reason", err.Error())
			return nil, err
		}
		return constraints, nil
	}

	go func() {
		defer close(out)
		defer span.End()

		result, err := handler(ctx, req, call, emit)
		if ctx.Err() != nil {
			out <- ExecutionEvent{Kind: EventCancelled}
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "handler returned error")
			out <- ExecutionEvent{Kind: EventFailed, Reason: FailureInternalError, Err: err}
			return
		}
		out <- ExecutionEvent{Kind: EventCompleted, Result: result}
	}()

	return out, nil
}
