// Package openai adapts the OpenAI Chat Completions API to the
// modelgateway.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"lion.run/lion/modelgateway"
)

// ChatClient captures the subset of the openai-go client used by the
// adapter, satisfied by openai.Client so tests can supply a fake.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *openai.ChatCompletionNewStreaming
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
}

// Client implements modelgateway.Provider on top of OpenAI Chat
// Completions.
type Client struct {
	chat  ChatClient
	model string
}

// New builds an adapter from an already-configured chat client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: chat, model: opts.DefaultModel}, nil
}

func (c *Client) params(req modelgateway.Request) openai.ChatCompletionNewParams {
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

// Complete issues a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req modelgateway.Request) (modelgateway.Response, error) {
	resp, err := c.chat.New(ctx, c.params(req))
	if err != nil {
		return modelgateway.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	return translate(resp), nil
}

// Stream issues a streaming chat completion request.
func (c *Client) Stream(ctx context.Context, req modelgateway.Request) (modelgateway.Streamer, error) {
	s := c.chat.NewStreaming(ctx, c.params(req))
	return &streamer{stream: s}, nil
}

type streamer struct {
	stream *openai.ChatCompletionNewStreaming
}

func (s *streamer) Recv() (modelgateway.Chunk, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return modelgateway.Chunk{}, err
		}
		return modelgateway.Chunk{}, io.EOF
	}
	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return modelgateway.Chunk{}, nil
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		return modelgateway.Chunk{Done: true, StopReason: choice.FinishReason}, nil
	}
	return modelgateway.Chunk{Delta: choice.Delta.Content}, nil
}

func (s *streamer) Close() error { return s.stream.Close() }

func translate(resp *openai.ChatCompletion) modelgateway.Response {
	messages := make([]modelgateway.Message, 0, len(resp.Choices))
	var toolCalls []modelgateway.ToolCall
	for _, choice := range resp.Choices {
		if strings.TrimSpace(choice.Message.Content) != "" {
			messages = append(messages, modelgateway.Message{Role: "assistant", Content: choice.Message.Content})
		}
		for _, call := range choice.Message.ToolCalls {
			toolCalls = append(toolCalls, modelgateway.ToolCall{Name: call.Function.Name, Payload: call.Function.Arguments})
		}
	}
	stop := ""
	if len(resp.Choices) > 0 {
		stop = string(resp.Choices[0].FinishReason)
	}
	return modelgateway.Response{
		Content:   messages,
		ToolCalls: toolCalls,
		Usage: modelgateway.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		StopReason: stop,
	}
}
