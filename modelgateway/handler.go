package modelgateway

import (
	"context"
	"errors"
	"io"

	"lion.run/lion/executor"
)

// NewAgentHandler adapts a Gateway into an executor.Handler suitable for
// registration against an InProcessActor: req.Input is treated as the
// user prompt, the completion is streamed chunk-by-chunk through emit, and
// the final assistant content is returned as the handler's result.
//
// If the configured provider does not support streaming, NewAgentHandler
// falls back to a single Complete call and emits the whole response as one
// chunk.
func NewAgentHandler(gw *Gateway, model string) executor.Handler {
	return func(ctx context.Context, req executor.Request, _ executor.HostCaller, emit executor.Emitter) ([]byte, error) {
		greq := Request{Model: model, Messages: []Message{{Role: "user", Content: string(req.Input)}}}

		stream, err := gw.Stream(ctx, greq)
		if err == nil {
			return drain(stream, emit)
		}
		if !errors.Is(err, ErrStreamingUnsupported) {
			return nil, err
		}

		resp, err := gw.Complete(ctx, greq)
		if err != nil {
			return nil, err
		}
		out := contentOf(resp)
		if emit != nil {
			emit([]byte(out))
		}
		return []byte(out), nil
	}
}

func drain(stream Streamer, emit executor.Emitter) ([]byte, error) {
	defer stream.Close()
	var out []byte
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		if chunk.Done {
			return out, nil
		}
		if chunk.Delta != "" {
			out = append(out, chunk.Delta...)
			if emit != nil {
				emit([]byte(chunk.Delta))
			}
		}
	}
}

func contentOf(resp Response) string {
	if len(resp.Content) == 0 {
		return ""
	}
	return resp.Content[len(resp.Content)-1].Content
}
