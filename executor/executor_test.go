package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lion.run/lion/capability"
	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/policy"
)

func newGate(t *testing.T, plugin ids.PluginID, grant capability.Capability, rules []policy.Rule) *policy.CombinedGate {
	t.Helper()
	store := capability.NewMemStore()
	require.NoError(t, store.Grant(context.Background(), plugin, grant))
	capGate := capability.NewGate(store)
	engine := policy.NewEngine(rules)
	return policy.NewCombinedGate(capGate, engine)
}

func drain(t *testing.T, ch <-chan executor.ExecutionEvent) []executor.ExecutionEvent {
	t.Helper()
	var events []executor.ExecutionEvent
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, evt)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for execution events")
		}
	}
}

func TestInProcessActorAllowedHostCallCompletes(t *testing.T) {
	grant := capability.File{Paths: []string{"/data/report.txt"}, Rights: capability.RightRead}
	rules := []policy.Rule{{ID: "allow-read", Subject: "*", Object: "*", Action: "read", Effect: policy.EffectAllow}}
	plugin := ids.NewPluginID()
	gate := newGate(t, plugin, grant, rules)
	mediator := &executor.HostCallMediator{Gate: gate}

	actor := executor.NewInProcessActor(mediator)
	actor.Register(plugin.String(), func(ctx context.Context, req executor.Request, call executor.HostCaller, emit executor.Emitter) ([]byte, error) {
		if _, err := call(ctx, executor.HostCallRequest{
			Action: "read",
			Access: capability.FileAccess{Path: "/data/report.txt", Rights: capability.RightRead},
		}); err != nil {
			return nil, err
		}
		emit([]byte("chunk-1"))
		return []byte("done"), nil
	})

	runner := executor.NewRunner(actor)
	ch, err := runner.Run(context.Background(), executor.Request{TaskID: ids.NewTaskID(), Plugin: plugin})
	require.NoError(t, err)

	events := drain(t, ch)
	require.NotEmpty(t, events)
	require.Equal(t, executor.EventStarted, events[0].Kind)
	require.Equal(t, executor.EventCompleted, events[len(events)-1].Kind)

	var sawHostCall, sawChunk bool
	for _, e := range events {
		if e.Kind == executor.EventHostCallRequested {
			sawHostCall = true
		}
		if e.Kind == executor.EventPartialOutput {
			sawChunk = true
		}
	}
	require.True(t, sawHostCall)
	require.True(t, sawChunk)
}

func TestInProcessActorDeniedHostCallFailsWithoutCorruptingResult(t *testing.T) {
	grant := capability.File{Paths: []string{"/data/report.txt"}, Rights: capability.RightRead}
	rules := []policy.Rule{{ID: "deny-write", Subject: "*", Object: "*", Action: "write", Effect: policy.EffectDeny}}
	plugin := ids.NewPluginID()
	gate := newGate(t, plugin, grant, rules)
	mediator := &executor.HostCallMediator{Gate: gate}

	actor := executor.NewInProcessActor(mediator)
	actor.Register(plugin.String(), func(ctx context.Context, req executor.Request, call executor.HostCaller, emit executor.Emitter) ([]byte, error) {
		_, err := call(ctx, executor.HostCallRequest{
			Action: "write",
			Access: capability.FileAccess{Path: "/data/report.txt", Rights: capability.RightWrite},
		})
		if err != nil {
			return nil, err
		}
		return []byte("should not reach here"), nil
	})

	runner := executor.NewRunner(actor)
	ch, err := runner.Run(context.Background(), executor.Request{TaskID: ids.NewTaskID(), Plugin: plugin})
	require.NoError(t, err)

	events := drain(t, ch)
	terminal := events[len(events)-1]
	require.Equal(t, executor.EventFailed, terminal.Kind)
	require.Nil(t, terminal.Result)
}

func TestRunnerTripsResourceLimitOnExcessiveHostCalls(t *testing.T) {
	grant := capability.File{Paths: []string{"/data/a"}, Rights: capability.RightRead}
	rules := []policy.Rule{{ID: "allow-read", Subject: "*", Object: "*", Action: "read", Effect: policy.EffectAllow}}
	plugin := ids.NewPluginID()
	gate := newGate(t, plugin, grant, rules)
	mediator := &executor.HostCallMediator{Gate: gate}

	actor := executor.NewInProcessActor(mediator)
	actor.Register(plugin.String(), func(ctx context.Context, req executor.Request, call executor.HostCaller, emit executor.Emitter) ([]byte, error) {
		for i := 0; i < 5; i++ {
			if _, err := call(ctx, executor.HostCallRequest{
				Action: "read",
				Access: capability.FileAccess{Path: "/data/a", Rights: capability.RightRead},
			}); err != nil {
				return nil, err
			}
		}
		return []byte("done"), nil
	})

	runner := executor.NewRunner(actor)
	ch, err := runner.Run(context.Background(), executor.Request{
		TaskID: ids.NewTaskID(),
		Plugin: plugin,
		Limits: executor.ResourceLimits{MaxHostCalls: 2},
	})
	require.NoError(t, err)

	events := drain(t, ch)
	terminal := events[len(events)-1]
	require.Equal(t, executor.EventFailed, terminal.Kind)
	require.Equal(t, executor.FailureResourceExceeded, terminal.Reason)
}

func TestWasmInstanceReportsUnavailable(t *testing.T) {
	actor := executor.NewWasmInstance()
	runner := executor.NewRunner(actor)
	ch, err := runner.Run(context.Background(), executor.Request{TaskID: ids.NewTaskID(), Plugin: ids.NewPluginID()})
	require.NoError(t, err)

	events := drain(t, ch)
	terminal := events[len(events)-1]
	require.Equal(t, executor.EventFailed, terminal.Kind)
}
