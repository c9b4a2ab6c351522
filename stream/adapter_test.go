package stream_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/stream"
)

func TestFromExecutionEventMapsEachKind(t *testing.T) {
	correlation := ids.NewCorrelationID()
	taskID := ids.NewTaskID()

	cases := []struct {
		name string
		in   executor.ExecutionEvent
		want stream.EventType
	}{
		{"started", executor.ExecutionEvent{Kind: executor.EventStarted}, stream.EventTaskStarted},
		{"output", executor.ExecutionEvent{Kind: executor.EventPartialOutput, Chunk: []byte("hi")}, stream.EventTaskOutput},
		{"host-call", executor.ExecutionEvent{Kind: executor.EventHostCallRequested, HostCall: &executor.HostCallRequest{Action: "fs.read"}}, stream.EventHostCallRequested},
		{"completed", executor.ExecutionEvent{Kind: executor.EventCompleted, Result: []byte("done")}, stream.EventTaskCompleted},
		{"failed", executor.ExecutionEvent{Kind: executor.EventFailed, Reason: executor.FailureTimeout, Err: errors.New("deadline")}, stream.EventTaskFailed},
		{"cancelled", executor.ExecutionEvent{Kind: executor.EventCancelled}, stream.EventTaskCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := stream.FromExecutionEvent(correlation, taskID, tc.in)
			require.Equal(t, tc.want, event.Type())
			require.Equal(t, correlation, event.Correlation())
			require.Equal(t, taskID, event.TaskID())
		})
	}
}

func TestFromExecutionEventHostCallPayloadCarriesAction(t *testing.T) {
	correlation := ids.NewCorrelationID()
	taskID := ids.NewTaskID()
	event := stream.FromExecutionEvent(correlation, taskID, executor.ExecutionEvent{
		Kind:     executor.EventHostCallRequested,
		HostCall: &executor.HostCallRequest{Action: "net.dial"},
	})
	payload, ok := event.Payload().(stream.HostCallRequestedPayload)
	require.True(t, ok)
	require.Equal(t, "net.dial", payload.Action)
}

func TestFromExecutionEventFailedPayloadCarriesReasonAndError(t *testing.T) {
	correlation := ids.NewCorrelationID()
	taskID := ids.NewTaskID()
	event := stream.FromExecutionEvent(correlation, taskID, executor.ExecutionEvent{
		Kind:   executor.EventFailed,
		Reason: executor.FailureCapabilityDenied,
		Err:    errors.New("no capability"),
	})
	payload, ok := event.Payload().(stream.TaskFailedPayload)
	require.True(t, ok)
	require.Equal(t, string(executor.FailureCapabilityDenied), payload.Reason)
	require.Equal(t, "no capability", payload.Error)
}

func TestEndOfCorrelationMarksBoundary(t *testing.T) {
	correlation := ids.NewCorrelationID()
	event := stream.EndOfCorrelation(correlation)
	require.Equal(t, stream.EventCorrelationStreamEnd, event.Type())
	require.Equal(t, correlation, event.Correlation())
}
