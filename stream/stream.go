// Package stream delivers real-time task execution updates to clients over a
// transport (SSE, WebSocket, Pulse). Stream events are a client-facing,
// filtered projection of ExecutionEvents; the Event Log is the durable,
// complete record.
//
// The Sink/Event contract and the Base embedding pattern are carried over
// from the teacher's agent-facing stream package, generalized from one
// workflow run's tool/assistant events to the kernel's ExecutionEvent union,
// keyed by CorrelationID instead of a run/session pair.
package stream

import (
	"context"

	"lion.run/lion/ids"
)

type (
	// Sink delivers streaming updates to clients. Implementations must be
	// safe for concurrent Send calls: the executor may stream output from
	// several plugins in parallel.
	Sink interface {
		// Send publishes event to the sink's transport. An error here stops
		// delivery to the rest of a fan-out chain, so transient transport
		// failures should be retried inside the implementation rather than
		// surfaced per-event where possible.
		Send(ctx context.Context, event Event) error

		// Close releases resources owned by the sink. Idempotent.
		Close(ctx context.Context) error
	}

	// Event is one streaming update. Concrete event types embed Base.
	Event interface {
		Type() EventType
		Correlation() ids.CorrelationID
		TaskID() ids.TaskID
		Payload() any
	}

	// Base provides the common Event fields. Embed it in concrete event
	// types to avoid repeating Type/Correlation/TaskID/Payload boilerplate.
	Base struct {
		t           EventType
		correlation ids.CorrelationID
		taskID      ids.TaskID
		payload     any
	}
)

// EventType enumerates stream payload flavors, mirroring the executor's
// ExecutionEvent kinds plus one stream-only boundary marker.
type EventType string

const (
	EventTaskStarted          EventType = "task_started"
	EventTaskOutput           EventType = "task_output"
	EventHostCallRequested    EventType = "host_call_requested"
	EventTaskCompleted        EventType = "task_completed"
	EventTaskFailed           EventType = "task_failed"
	EventTaskCancelled        EventType = "task_cancelled"
	EventCorrelationStreamEnd EventType = "correlation_stream_end"
)

// NewBase constructs a Base event.
func NewBase(t EventType, correlation ids.CorrelationID, taskID ids.TaskID, payload any) Base {
	return Base{t: t, correlation: correlation, taskID: taskID, payload: payload}
}

func (b Base) Type() EventType                { return b.t }
func (b Base) Correlation() ids.CorrelationID { return b.correlation }
func (b Base) TaskID() ids.TaskID             { return b.taskID }
func (b Base) Payload() any                   { return b.payload }

// TaskOutputPayload carries one chunk of a plugin's partial output.
type TaskOutputPayload struct {
	Chunk []byte `json:"chunk"`
}

// HostCallRequestedPayload describes a host call a sandboxed actor asked the
// mediator to authorize.
type HostCallRequestedPayload struct {
	Action string `json:"action"`
}

// TaskCompletedPayload carries a plugin's final result.
type TaskCompletedPayload struct {
	Result []byte `json:"result,omitempty"`
}

// TaskFailedPayload carries the reason a plugin invocation failed.
type TaskFailedPayload struct {
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}
