package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lion.run/lion/event"
	"lion.run/lion/ids"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	task := ids.NewTaskID()
	corr := ids.NewCorrelationID()
	orig := event.NewTaskSubmitted(corr, task, []byte("hello"))

	env, err := event.Encode(orig)
	require.NoError(t, err)
	require.Equal(t, event.TaskSubmitted, env.Type)

	decoded, err := event.Decode(env)
	require.NoError(t, err)

	got, ok := decoded.(*event.TaskSubmittedEvent)
	require.True(t, ok)
	require.Equal(t, task, got.TaskID)
	require.Equal(t, []byte("hello"), got.Payload)
	require.Equal(t, orig.ID(), got.ID())
	require.Equal(t, corr, got.Correlation())
}

func TestDecodeUnknownTypeIsIgnorable(t *testing.T) {
	t.Parallel()
	env := event.Envelope{Type: "some_future_variant", Payload: []byte(`{}`)}
	_, err := event.Decode(env)
	var unknown *event.UnknownTypeError
	require.ErrorAs(t, err, &unknown)
}

func TestDecodeRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()
	env := event.Envelope{SchemaVersion: 999, Type: event.TaskSubmitted, Payload: []byte(`{}`)}
	_, err := event.Decode(env)
	var verErr *event.ErrUnsupportedSchemaVersion
	require.ErrorAs(t, err, &verErr)
}
