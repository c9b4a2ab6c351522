package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"lion.run/lion/event"
	"lion.run/lion/ids"
)

func TestBusPublishRegisterOrder(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()

	var got []event.Type
	sub, err := bus.Register(event.SubscriberFunc(func(_ context.Context, evt event.SystemEvent) error {
		got = append(got, evt.EventType())
		return nil
	}))
	require.NoError(t, err)
	defer sub.Close()

	task := ids.NewTaskID()
	require.NoError(t, bus.Publish(context.Background(), event.NewTaskSubmitted(ids.Nil, task, []byte("hello"))))
	require.NoError(t, bus.Publish(context.Background(), event.NewTaskCompleted(ids.Nil, task, []byte("Processed: hello"))))

	require.Equal(t, []event.Type{event.TaskSubmitted, event.TaskCompleted}, got)
}

func TestBusSubscriberErrorStopsFanout(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()

	boom := errors.New("halt")
	var secondCalled bool
	first, _ := bus.Register(event.SubscriberFunc(func(context.Context, event.SystemEvent) error { return boom }))
	defer first.Close()
	second, _ := bus.Register(event.SubscriberFunc(func(context.Context, event.SystemEvent) error {
		secondCalled = true
		return nil
	}))
	defer second.Close()

	err := bus.Publish(context.Background(), event.NewTaskSubmitted(ids.Nil, ids.NewTaskID(), nil))
	require.ErrorIs(t, err, boom)
	require.False(t, secondCalled)
}

func TestBusSubscribeDeliversFilteredChannel(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()

	ch, sub := bus.Subscribe(func(evt event.SystemEvent) bool {
		return evt.EventType() == event.TaskCompleted
	}, 4, event.DropPolicyFail)
	defer sub.Close()

	task := ids.NewTaskID()
	require.NoError(t, bus.Publish(context.Background(), event.NewTaskSubmitted(ids.Nil, task, nil)))
	require.NoError(t, bus.Publish(context.Background(), event.NewTaskCompleted(ids.Nil, task, []byte("ok"))))

	select {
	case evt := <-ch:
		require.Equal(t, event.TaskCompleted, evt.EventType())
	default:
		t.Fatal("expected a filtered event on the channel")
	}
}

func TestBusSubscribeFullQueueFailsUnderFailPolicy(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()
	_, sub := bus.Subscribe(nil, 1, event.DropPolicyFail)
	defer sub.Close()

	require.NoError(t, bus.Publish(context.Background(), event.NewTaskSubmitted(ids.Nil, ids.NewTaskID(), nil)))
	err := bus.Publish(context.Background(), event.NewTaskSubmitted(ids.Nil, ids.NewTaskID(), nil))
	require.ErrorIs(t, err, event.ErrFull)
}
