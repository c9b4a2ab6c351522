package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	streamopts "goa.design/pulse/streaming/options"

	"lion.run/lion/ids"
	"lion.run/lion/stream"
	clientspulse "lion.run/lion/stream/pulse/clients/pulse"
)

type fakeClient struct {
	streamFn func(name string) (clientspulse.Stream, error)
	closeFn  func(ctx context.Context) error
}

func (c *fakeClient) Stream(name string, _ ...streamopts.Stream) (clientspulse.Stream, error) {
	return c.streamFn(name)
}

func (c *fakeClient) Close(ctx context.Context) error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn(ctx)
}

type fakeStream struct {
	addFn func(ctx context.Context, event string, payload []byte) (string, error)
}

func (s *fakeStream) Add(ctx context.Context, event string, payload []byte) (string, error) {
	return s.addFn(ctx, event, payload)
}

func (s *fakeStream) NewSink(context.Context, string, ...streamopts.Sink) (clientspulse.Sink, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStream) Destroy(context.Context) error { return nil }

func newTestEvent(t *testing.T, typ stream.EventType, correlation ids.CorrelationID, taskID ids.TaskID) stream.Event {
	t.Helper()
	return stream.NewBase(typ, correlation, taskID, map[string]string{"status": "ok"})
}

func TestSendPublishesEnvelope(t *testing.T) {
	correlation := ids.NewCorrelationID()
	cli := &fakeClient{
		streamFn: func(name string) (clientspulse.Stream, error) {
			require.Equal(t, "correlation/"+correlation.String(), name)
			return &fakeStream{
				addFn: func(ctx context.Context, event string, payload []byte) (string, error) {
					require.Equal(t, string(stream.EventTaskCompleted), event)
					var env Envelope
					require.NoError(t, json.Unmarshal(payload, &env))
					require.Equal(t, correlation.String(), env.CorrelationID)
					require.Equal(t, "task_completed", env.Type)
					body, ok := env.Payload.(map[string]any)
					require.True(t, ok)
					require.Equal(t, "ok", body["status"])
					return "1-0", nil
				},
			}, nil
		},
	}

	sink, err := NewSink(Options{Client: cli})
	require.NoError(t, err)

	event := newTestEvent(t, stream.EventTaskCompleted, correlation, ids.NewTaskID())
	require.NoError(t, sink.Send(context.Background(), event))
}

func TestCustomStreamID(t *testing.T) {
	correlation := ids.NewCorrelationID()
	cli := &fakeClient{
		streamFn: func(name string) (clientspulse.Stream, error) {
			require.Equal(t, "custom/"+correlation.String(), name)
			return &fakeStream{
				addFn: func(context.Context, string, []byte) (string, error) { return "1-0", nil },
			}, nil
		},
	}
	sink, err := NewSink(Options{
		Client: cli,
		StreamID: func(e stream.Event) (string, error) {
			return "custom/" + e.Correlation().String(), nil
		},
	})
	require.NoError(t, err)
	event := newTestEvent(t, stream.EventTaskStarted, correlation, ids.NewTaskID())
	require.NoError(t, sink.Send(context.Background(), event))
}

func TestSendRequiresCorrelationID(t *testing.T) {
	sink, err := NewSink(Options{Client: &fakeClient{}})
	require.NoError(t, err)
	event := newTestEvent(t, stream.EventTaskStarted, ids.CorrelationID(ids.Nil), ids.NewTaskID())
	err = sink.Send(context.Background(), event)
	require.EqualError(t, err, "stream event missing correlation id")
}

func TestStreamCreationError(t *testing.T) {
	cli := &fakeClient{
		streamFn: func(string) (clientspulse.Stream, error) { return nil, errors.New("boom") },
	}
	sink, err := NewSink(Options{Client: cli})
	require.NoError(t, err)
	event := newTestEvent(t, stream.EventTaskStarted, ids.NewCorrelationID(), ids.NewTaskID())
	err = sink.Send(context.Background(), event)
	require.EqualError(t, err, "boom")
}

func TestAddError(t *testing.T) {
	cli := &fakeClient{
		streamFn: func(string) (clientspulse.Stream, error) {
			return &fakeStream{
				addFn: func(context.Context, string, []byte) (string, error) { return "", errors.New("add-failed") },
			}, nil
		},
	}
	sink, err := NewSink(Options{Client: cli})
	require.NoError(t, err)
	event := newTestEvent(t, stream.EventTaskStarted, ids.NewCorrelationID(), ids.NewTaskID())
	err = sink.Send(context.Background(), event)
	require.EqualError(t, err, "add-failed")
}

func TestCloseDelegates(t *testing.T) {
	cli := &fakeClient{
		closeFn: func(ctx context.Context) error {
			require.NotNil(t, ctx)
			return nil
		},
	}
	sink, err := NewSink(Options{Client: cli})
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))
}
