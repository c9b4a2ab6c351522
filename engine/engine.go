// Package engine defines the durable-execution abstractions the Workflow/Saga
// Coordinator runs on top of: a pluggable Engine interface so a Definition can
// be driven by an in-memory engine during development or by Temporal in
// production without the coordinator itself changing.
//
// The interface shape (Engine/WorkflowContext/Future/SignalChannel) is carried
// over from the teacher's workflow engine abstraction, generalized from one
// agent-turn workflow per run to the step-DAG model this kernel schedules.
package engine

import (
	"context"
	"time"

	"lion.run/lion/telemetry"
)

type (
	// Engine abstracts workflow registration and execution so adapters
	// (Temporal, in-memory, or custom) can be swapped without touching the
	// coordinator. Implementations translate these generic types into
	// backend-specific primitives.
	Engine interface {
		// RegisterWorkflow registers a workflow definition with the engine.
		// Called once during startup before StartWorkflow is used. Returns
		// an error if the name is already registered.
		RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error

		// RegisterActivity registers an activity definition with the engine.
		// Activities are short-lived tasks invoked from within a workflow
		// (one per StepDef action or compensation name).
		RegisterActivity(ctx context.Context, def ActivityDefinition) error

		// StartWorkflow initiates a new workflow execution and returns a
		// handle for interacting with it. req.ID must be unique for the
		// engine instance.
		StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
	}

	// WorkflowDefinition binds a workflow handler to a logical name and
	// default queue.
	WorkflowDefinition struct {
		Name      string
		TaskQueue string
		Handler   WorkflowFunc
	}

	// WorkflowFunc is the engine-driven entry point for one workflow kind. It
	// must be deterministic under replay: the only interaction with the
	// outside world is via ctx.ExecuteActivity/ExecuteActivityAsync.
	WorkflowFunc func(ctx WorkflowContext, input any) (any, error)

	// WorkflowContext exposes engine operations to a running workflow.
	// Implementations must ensure deterministic replay: ExecuteActivity and
	// SignalChannel must produce the same results on replay. Direct I/O,
	// randomness, or wall-clock reads within a workflow function violate
	// that and must go through Now() and activities instead.
	//
	// WorkflowContext is bound to a single execution and must not be shared
	// across goroutines outside the workflow function itself.
	WorkflowContext interface {
		Context() context.Context
		WorkflowID() string
		RunID() string

		// ExecuteActivity schedules an activity and blocks for its result.
		ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error

		// ExecuteActivityAsync schedules an activity without blocking,
		// returning a Future resolved later via Get.
		ExecuteActivityAsync(ctx context.Context, req ActivityRequest) (Future, error)

		// SignalChannel returns the channel for named signals delivered to
		// this workflow execution (e.g. an operator-initiated abort).
		SignalChannel(name string) SignalChannel

		Logger() telemetry.Logger
		Metrics() telemetry.Metrics
		Tracer() telemetry.Tracer

		// Now returns the current time in a replay-safe manner.
		Now() time.Time
	}

	// Future represents a pending activity result. Get may be called more
	// than once and returns the same result/error each time.
	Future interface {
		Get(ctx context.Context, result any) error
		IsReady() bool
	}

	// ActivityDefinition registers an activity handler invoked by name from
	// a workflow.
	ActivityDefinition struct {
		Name    string
		Handler ActivityFunc
		Options ActivityOptions
	}

	// ActivityFunc performs one step's side effects. Unlike WorkflowFunc, it
	// may do real I/O.
	ActivityFunc func(ctx context.Context, input any) (any, error)

	// ActivityOptions configures retry/timeout for an activity.
	ActivityOptions struct {
		Queue       string
		RetryPolicy RetryPolicy
		Timeout     time.Duration
	}

	// WorkflowStartRequest describes how to launch one workflow execution.
	WorkflowStartRequest struct {
		ID               string
		Workflow         string
		TaskQueue        string
		Input            any
		Memo             map[string]any
		SearchAttributes map[string]any
		RetryPolicy      RetryPolicy
	}

	// ActivityRequest describes one activity invocation from a workflow.
	ActivityRequest struct {
		Name        string
		Input       any
		Queue       string
		RetryPolicy RetryPolicy
		Timeout     time.Duration
	}

	// WorkflowHandle lets callers wait for, signal, or cancel a running
	// workflow execution.
	WorkflowHandle interface {
		Wait(ctx context.Context, result any) error
		Signal(ctx context.Context, name string, payload any) error
		Cancel(ctx context.Context) error
	}

	// RetryPolicy is shared retry configuration for workflows and
	// activities. Zero-valued fields mean the engine's own default applies.
	RetryPolicy struct {
		MaxAttempts        int
		InitialInterval    time.Duration
		BackoffCoefficient float64
	}

	// SignalChannel exposes engine-agnostic signal delivery to a workflow.
	SignalChannel interface {
		Receive(ctx context.Context, dest any) error
		ReceiveAsync(dest any) bool
	}
)
