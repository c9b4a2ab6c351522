// Package anthropic adapts the Anthropic Claude Messages API to the
// modelgateway.Provider interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"lion.run/lion/modelgateway"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter depends on, satisfied by *sdk.MessageService so tests can supply
// a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Client implements modelgateway.Provider on top of Anthropic Messages.
type Client struct {
	msg   MessagesClient
	model string
	opts  Options
}

// New builds an adapter from an already-configured Anthropic messages
// client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Client{msg: msg, model: opts.DefaultModel, opts: opts}, nil
}

// NewFromAPIKey constructs an adapter using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, Options{DefaultModel: defaultModel})
}

func (c *Client) params(req modelgateway.Request) sdk.MessageNewParams {
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = int64(c.opts.MaxTokens)
	}
	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
}

// Complete issues a non-streaming Messages.New request.
func (c *Client) Complete(ctx context.Context, req modelgateway.Request) (modelgateway.Response, error) {
	msg, err := c.msg.New(ctx, c.params(req))
	if err != nil {
		if isRateLimited(err) {
			return modelgateway.Response{}, fmt.Errorf("%w: %w", modelgateway.ErrRateLimited, err)
		}
		return modelgateway.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translate(msg), nil
}

// Stream issues a streaming Messages.New request and adapts the SSE event
// stream into a modelgateway.Streamer of text deltas.
func (c *Client) Stream(ctx context.Context, req modelgateway.Request) (modelgateway.Streamer, error) {
	s := c.msg.NewStreaming(ctx, c.params(req))
	return &streamer{stream: s}, nil
}

type streamer struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	acc    sdk.Message
}

func (s *streamer) Recv() (modelgateway.Chunk, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		if err := s.acc.Accumulate(event); err != nil {
			return modelgateway.Chunk{}, err
		}
		if delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent); ok {
			if delta.Delta.Text != "" {
				return modelgateway.Chunk{Delta: delta.Delta.Text}, nil
			}
		}
		if _, ok := event.AsAny().(sdk.MessageStopEvent); ok {
			return modelgateway.Chunk{Done: true, StopReason: string(s.acc.StopReason)}, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return modelgateway.Chunk{}, err
	}
	return modelgateway.Chunk{}, io.EOF
}

func (s *streamer) Close() error { return s.stream.Close() }

func translate(msg *sdk.Message) modelgateway.Response {
	var text strings.Builder
	var toolCalls []modelgateway.ToolCall
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdk.TextBlock:
			text.WriteString(v.Text)
		case sdk.ToolUseBlock:
			toolCalls = append(toolCalls, modelgateway.ToolCall{Name: v.Name, Payload: v.Input})
		}
	}
	content := []modelgateway.Message(nil)
	if text.Len() > 0 {
		content = append(content, modelgateway.Message{Role: "assistant", Content: text.String()})
	}
	return modelgateway.Response{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: modelgateway.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		StopReason: string(msg.StopReason),
	}
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}
