package modelgateway_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/modelgateway"
)

type fakeProvider struct {
	response modelgateway.Response
	chunks   []modelgateway.Chunk
	err      error
	// streamErr, when set, fails only Stream, leaving Complete to f.err.
	streamErr error
}

func (f *fakeProvider) Complete(context.Context, modelgateway.Request) (modelgateway.Response, error) {
	return f.response, f.err
}

func (f *fakeProvider) Stream(context.Context, modelgateway.Request) (modelgateway.Streamer, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStreamer{chunks: f.chunks}, nil
}

type fakeStreamer struct {
	chunks []modelgateway.Chunk
	i      int
}

func (s *fakeStreamer) Recv() (modelgateway.Chunk, error) {
	if s.i >= len(s.chunks) {
		return modelgateway.Chunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *fakeStreamer) Close() error { return nil }

func TestGatewayRoutesToDefaultProvider(t *testing.T) {
	p := &fakeProvider{response: modelgateway.Response{Content: []modelgateway.Message{{Role: "assistant", Content: "hi"}}}}
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("anthropic", p))
	require.NoError(t, err)

	resp, err := gw.Complete(context.Background(), modelgateway.Request{Model: "claude-3"})
	require.NoError(t, err)
	require.Equal(t, "hi", resp.Content[0].Content)
}

func TestGatewayRoutesByProviderPrefix(t *testing.T) {
	a := &fakeProvider{response: modelgateway.Response{StopReason: "anthropic"}}
	o := &fakeProvider{response: modelgateway.Response{StopReason: "openai"}}
	gw, err := modelgateway.NewGateway(
		modelgateway.WithProvider("anthropic", a),
		modelgateway.WithProvider("openai", o),
	)
	require.NoError(t, err)

	resp, err := gw.Complete(context.Background(), modelgateway.Request{Model: "openai:gpt-4o"})
	require.NoError(t, err)
	require.Equal(t, "openai", resp.StopReason)
}

func TestGatewayUnknownProvider(t *testing.T) {
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("anthropic", &fakeProvider{}))
	require.NoError(t, err)

	_, err = gw.Complete(context.Background(), modelgateway.Request{Model: "bedrock:titan"})
	require.ErrorIs(t, err, modelgateway.ErrUnknownProvider)
}

func TestNewGatewayRequiresProvider(t *testing.T) {
	_, err := modelgateway.NewGateway()
	require.ErrorIs(t, err, modelgateway.ErrProviderRequired)
}

func TestGatewayMiddlewareWraps(t *testing.T) {
	p := &fakeProvider{response: modelgateway.Response{StopReason: "base"}}
	var called bool
	mw := func(next modelgateway.UnaryHandler) modelgateway.UnaryHandler {
		return func(ctx context.Context, req modelgateway.Request) (modelgateway.Response, error) {
			called = true
			return next(ctx, req)
		}
	}
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("anthropic", p), modelgateway.WithUnary(mw))
	require.NoError(t, err)

	_, err = gw.Complete(context.Background(), modelgateway.Request{})
	require.NoError(t, err)
	require.True(t, called)
}

func TestGatewayCompleteWrapsProviderError(t *testing.T) {
	wantErr := errors.New("boom")
	p := &fakeProvider{err: wantErr}
	gw, err := modelgateway.NewGateway(modelgateway.WithProvider("anthropic", p))
	require.NoError(t, err)

	_, err = gw.Complete(context.Background(), modelgateway.Request{})
	require.ErrorIs(t, err, wantErr)
}
