// Package modelgateway wraps the Anthropic, OpenAI, and AWS Bedrock SDKs
// behind one Provider interface that the Isolation Executor's in-process
// actor uses to execute an AgentSpawned unit of work, streaming output
// chunks back as AgentPartialOutput events.
package modelgateway

import (
	"context"
	"errors"
)

// ErrStreamingUnsupported is returned by a Provider's Stream method when the
// underlying backend has no streaming API (or the adapter has not wired
// one), signaling callers to fall back to Complete.
var ErrStreamingUnsupported = errors.New("modelgateway: streaming not supported by this provider")

// ErrRateLimited wraps a provider error known to be a rate-limit rejection,
// letting callers distinguish it from other failures without inspecting
// provider-specific error types.
var ErrRateLimited = errors.New("modelgateway: rate limited")

// Message is one turn of a conversation sent to a model.
type Message struct {
	Role    string
	Content string
}

// ToolDefinition describes a tool a model may call, in JSON Schema form.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema any
}

// ToolCall is a model-issued request to invoke a tool.
type ToolCall struct {
	Name    string
	Payload any
}

// TokenUsage reports token accounting for one completion.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Response is a provider-agnostic completion result.
type Response struct {
	Content    []Message
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

// Chunk is one piece of a streamed completion.
type Chunk struct {
	Delta      string
	Done       bool
	ToolCall   *ToolCall
	StopReason string
}

// Streamer yields successive Chunks until the stream ends (Recv returns
// io.EOF) or fails.
type Streamer interface {
	Recv() (Chunk, error)
	Close() error
}

// Provider is implemented by each concrete model backend (Anthropic,
// OpenAI, Bedrock). Stream may return ErrStreamingUnsupported.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (Streamer, error)
}
