package modelgateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/modelgateway"
)

func TestNewAgentHandlerStreamsChunks(t *testing.T) {
	p := &fakeProvider{chunks: []modelgateway.Chunk{{Delta: "hel"}, {Delta: "lo"}, {Done: true}}}
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("anthropic", p))
	require.NoError(t, err)

	handler := modelgateway.NewAgentHandler(gw, "claude-3")

	var chunks [][]byte
	emit := func(chunk []byte) { chunks = append(chunks, append([]byte(nil), chunk...)) }

	result, err := handler(context.Background(), executor.Request{TaskID: ids.NewTaskID(), Input: []byte("hi")}, nil, emit)
	require.NoError(t, err)
	require.Equal(t, "hello", string(result))
	require.Equal(t, [][]byte{[]byte("hel"), []byte("lo")}, chunks)
}

func TestNewAgentHandlerFallsBackToComplete(t *testing.T) {
	p := &fakeProvider{
		streamErr: modelgateway.ErrStreamingUnsupported,
		response:  modelgateway.Response{Content: []modelgateway.Message{{Role: "assistant", Content: "answer"}}},
	}
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("openai", p))
	require.NoError(t, err)

	handler := modelgateway.NewAgentHandler(gw, "openai:gpt-4o")

	result, err := handler(context.Background(), executor.Request{TaskID: ids.NewTaskID(), Input: []byte("hi")}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "answer", string(result))
}
