// Package executor implements the Isolation Executor (C6): runs one unit of
// work in a sandboxed context, meters resources, and streams partial output.
//
// The streaming/tracing texture (span per execution, structured logger
// fields, channel-based event delivery) is grounded on the teacher's
// registry-backed tool executor; gating every host call through the
// capability+policy combined gate is grounded on the retrieved sandbox
// design's capability-mediated host-call pattern.
package executor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lion.run/lion/capability"
	"lion.run/lion/errkind"
	"lion.run/lion/ids"
	"lion.run/lion/policy"
	"lion.run/lion/telemetry"
)

type (
	// Kind discriminates sandbox implementations. The executor contract
	// (Execute) is uniform across kinds (§4.6).
	Kind string

	// EventKind discriminates ExecutionEvent variants.
	EventKind string
)

const (
	KindWasm       Kind = "wasm_instance"
	KindSubprocess Kind = "subprocess_actor"
	KindInProcess  Kind = "in_process_actor"
)

const (
	EventStarted           EventKind = "started"
	EventPartialOutput     EventKind = "partial_output"
	EventHostCallRequested EventKind = "host_call_requested"
	EventCompleted         EventKind = "completed"
	EventFailed            EventKind = "failed"
	EventCancelled         EventKind = "cancelled"
)

// FailureReason is the failure taxonomy of §4.6.
type FailureReason string

const (
	FailureResourceExceeded FailureReason = "resource_exceeded"
	FailureCapabilityDenied FailureReason = "capability_denied"
	FailurePolicyDenied     FailureReason = "policy_denied"
	FailureSandboxTrap      FailureReason = "sandbox_trap"
	FailureTimeout          FailureReason = "timeout"
	FailureCancelled        FailureReason = "cancelled"
	FailureInternalError    FailureReason = "internal_error"
)

// Request is one unit of work submitted to an Actor.
type Request struct {
	TaskID ids.TaskID
	Plugin ids.PluginID
	Input  []byte
	Caps   []capability.Capability
	Limits ResourceLimits
}

// ResourceLimits bounds one execution. Zero means unbounded for that
// dimension.
type ResourceLimits struct {
	MaxCPUTime     time.Duration
	MaxMemoryBytes uint64
	MaxWallTime    time.Duration
	MaxHostCalls   uint64
}

// ResourceUsage tracks the metered quantities of §4.6 for one execution.
type ResourceUsage struct {
	CPUTime        time.Duration
	MemoryBytes    uint64
	WallTime       time.Duration
	HostCallsCount uint64
}

func (u ResourceUsage) exceeds(l ResourceLimits) (FailureReason, bool) {
	switch {
	case l.MaxCPUTime > 0 && u.CPUTime > l.MaxCPUTime:
		return FailureResourceExceeded, true
	case l.MaxMemoryBytes > 0 && u.MemoryBytes > l.MaxMemoryBytes:
		return FailureResourceExceeded, true
	case l.MaxWallTime > 0 && u.WallTime > l.MaxWallTime:
		return FailureResourceExceeded, true
	case l.MaxHostCalls > 0 && u.HostCallsCount > l.MaxHostCalls:
		return FailureResourceExceeded, true
	}
	return "", false
}

// ExecutionEvent is one event in an execution's stream. Exactly one
// terminal event (Completed, Failed, or Cancelled) is emitted per execution
// (§4.6 lifecycle).
type ExecutionEvent struct {
	Kind     EventKind
	Chunk    []byte
	HostCall *HostCallRequest
	Result   []byte
	Reason   FailureReason
	Err      error
}

// HostCallRequest is one mediated host call issued by sandboxed code.
type HostCallRequest struct {
	Action string
	Access capability.AccessRequest
}

// Actor executes one Request and streams ExecutionEvents. The channel is
// closed after the terminal event; downstream backpressure (an unconsumed
// channel) pauses the sandbox rather than buffering a complete response
// (§4.6 Streaming contract).
type Actor interface {
	Kind() Kind
	Execute(ctx context.Context, req Request) (<-chan ExecutionEvent, error)
}

// HostCallMediator gates a single host call against the combined
// capability+policy gate before it is allowed to proceed (§4.6 Host-call
// mediation: "MUST call the capability gate and policy engine before
// performing the call").
type HostCallMediator struct {
	Gate *policy.CombinedGate
}

// Mediate checks call against plugin's held capabilities and the policy
// engine. A denied call never reaches the sandbox's host environment; it is
// reported back as an error the sandbox can observe, never a corrupted host
// state (§4.6).
func (m *HostCallMediator) Mediate(ctx context.Context, plugin ids.PluginID, call HostCallRequest, correlation ids.CorrelationID) (capability.Capability, *errkind.Error) {
	req := policy.Request{
		Subject: plugin.String(),
		Object:  call.Action,
		Action:  call.Action,
		Access:  call.Access,
	}
	return m.Gate.Check(ctx, plugin, req, correlation)
}

// Runner wraps an Actor with resource metering, tracing, and a hard wall-time
// deadline. It is the entry point components outside this package use to
// run one Request (§4.6's uniform execute contract).
type Runner struct {
	actor   Actor
	tracer  telemetry.Tracer
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// Option configures a Runner at construction.
type Option func(*Runner)

func WithTracer(t telemetry.Tracer) Option   { return func(r *Runner) { r.tracer = t } }
func WithLogger(l telemetry.Logger) Option   { return func(r *Runner) { r.logger = l } }
func WithMetrics(m telemetry.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// NewRunner constructs a Runner around actor.
func NewRunner(actor Actor, opts ...Option) *Runner {
	r := &Runner{
		actor:   actor,
		tracer:  telemetry.NewNoopTracer(),
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req, enforcing req.Limits on top of the underlying Actor's
// own event stream: any limit exceeded converts the execution to a Failed
// event with FailureResourceExceeded, and the context is cancelled so the
// Actor can stop promptly (best-effort — §5 Cancellation).
func (r *Runner) Run(ctx context.Context, req Request) (<-chan ExecutionEvent, error) {
	ctx, span := r.tracer.Start(ctx, "executor.run", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("executor.plugin_id", req.Plugin.String()),
			attribute.String("executor.task_id", req.TaskID.String()),
			attribute.String("executor.kind", string(r.actor.Kind())),
		))

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Limits.MaxWallTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Limits.MaxWallTime)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	upstream, err := r.actor.Execute(runCtx, req)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "actor execute failed")
		span.End()
		return nil, err
	}

	out := make(chan ExecutionEvent, 1)
	go func() {
		defer cancel()
		defer span.End()
		defer close(out)

		start := time.Now()
		usage := ResourceUsage{}
		for evt := range upstream {
			if evt.Kind == EventHostCallRequested {
				usage.HostCallsCount++
			}
			usage.WallTime = time.Since(start)
			if reason, exceeded := usage.exceeds(req.Limits); exceeded {
				out <- ExecutionEvent{Kind: EventFailed, Reason: reason}
				r.metrics.IncCounter("executor_resource_limit_trips_total", 1, "reason", string(reason))
				return
			}
			out <- evt
			if evt.Kind == EventCompleted || evt.Kind == EventFailed || evt.Kind == EventCancelled {
				return
			}
		}
		if runCtx.Err() != nil {
			out <- ExecutionEvent{Kind: EventFailed, Reason: FailureTimeout, Err: runCtx.Err()}
		}
	}()
	return out, nil
}
