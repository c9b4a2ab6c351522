package stream

import (
	"lion.run/lion/executor"
	"lion.run/lion/ids"
)

// concrete is the single Event implementation produced by FromExecutionEvent.
// It exists only so Payload can be typed per EventType without exporting one
// struct per variant the way Base's callers would otherwise need to.
type concrete struct {
	Base
}

// FromExecutionEvent projects one executor.ExecutionEvent into a stream
// Event addressed at correlation/taskID. Unrecognized executor.EventKind
// values map to a best-effort EventTaskFailed so a sink never silently drops
// an event it does not understand.
func FromExecutionEvent(correlation ids.CorrelationID, taskID ids.TaskID, ev executor.ExecutionEvent) Event {
	switch ev.Kind {
	case executor.EventStarted:
		return concrete{NewBase(EventTaskStarted, correlation, taskID, nil)}
	case executor.EventPartialOutput:
		return concrete{NewBase(EventTaskOutput, correlation, taskID, TaskOutputPayload{Chunk: ev.Chunk})}
	case executor.EventHostCallRequested:
		action := ""
		if ev.HostCall != nil {
			action = ev.HostCall.Action
		}
		return concrete{NewBase(EventHostCallRequested, correlation, taskID, HostCallRequestedPayload{Action: action})}
	case executor.EventCompleted:
		return concrete{NewBase(EventTaskCompleted, correlation, taskID, TaskCompletedPayload{Result: ev.Result})}
	case executor.EventCancelled:
		return concrete{NewBase(EventTaskCancelled, correlation, taskID, TaskFailedPayload{Reason: string(executor.FailureCancelled)})}
	case executor.EventFailed:
		fallthrough
	default:
		errMsg := ""
		if ev.Err != nil {
			errMsg = ev.Err.Error()
		}
		return concrete{NewBase(EventTaskFailed, correlation, taskID, TaskFailedPayload{Reason: string(ev.Reason), Error: errMsg})}
	}
}

// EndOfCorrelation builds the boundary marker a sink emits once it has
// delivered every event for correlation and will send no more.
func EndOfCorrelation(correlation ids.CorrelationID) Event {
	return concrete{NewBase(EventCorrelationStreamEnd, correlation, ids.TaskID(ids.Nil), nil)}
}
