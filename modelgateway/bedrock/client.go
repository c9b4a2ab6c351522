// Package bedrock adapts the AWS Bedrock Converse API to the
// modelgateway.Provider interface.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"lion.run/lion/modelgateway"
)

// RuntimeClient captures the subset of the Bedrock runtime client the
// adapter depends on, satisfied by *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements modelgateway.Provider on top of Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	model   string
	opts    Options
}

// New builds an adapter from an already-configured Bedrock runtime client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: runtime, model: opts.DefaultModel, opts: opts}, nil
}

func (c *Client) messages(req modelgateway.Request) []brtypes.Message {
	msgs := make([]brtypes.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := brtypes.ConversationRoleUser
		if m.Role == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		msgs = append(msgs, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return msgs
}

func (c *Client) inferenceConfig(req modelgateway.Request) *brtypes.InferenceConfiguration {
	cfg := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(req.MaxTokens))
	} else if c.opts.MaxTokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(c.opts.MaxTokens))
	}
	if req.Temperature > 0 {
		cfg.Temperature = aws.Float32(float32(req.Temperature))
	} else if c.opts.Temperature > 0 {
		cfg.Temperature = aws.Float32(c.opts.Temperature)
	}
	return cfg
}

// Complete issues a non-streaming Converse request.
func (c *Client) Complete(ctx context.Context, req modelgateway.Request) (modelgateway.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelID),
		Messages:        c.messages(req),
		InferenceConfig: c.inferenceConfig(req),
	})
	if err != nil {
		return modelgateway.Response{}, fmt.Errorf("bedrock converse: %w", err)
	}
	return translate(out), nil
}

// Stream issues a streaming ConverseStream request.
func (c *Client) Stream(ctx context.Context, req modelgateway.Request) (modelgateway.Streamer, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	out, err := c.runtime.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(modelID),
		Messages:        c.messages(req),
		InferenceConfig: c.inferenceConfig(req),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock converse stream: %w", err)
	}
	return &streamer{events: out.GetStream()}, nil
}

type streamer struct {
	events *bedrockruntime.ConverseStreamEventStream
}

func (s *streamer) Recv() (modelgateway.Chunk, error) {
	event, ok := <-s.events.Events()
	if !ok {
		if err := s.events.Err(); err != nil {
			return modelgateway.Chunk{}, err
		}
		return modelgateway.Chunk{}, io.EOF
	}
	switch v := event.(type) {
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		if delta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
			return modelgateway.Chunk{Delta: delta.Value}, nil
		}
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		return modelgateway.Chunk{Done: true, StopReason: string(v.Value.StopReason)}, nil
	}
	return modelgateway.Chunk{}, nil
}

func (s *streamer) Close() error {
	return s.events.Close()
}

func translate(out *bedrockruntime.ConverseOutput) modelgateway.Response {
	var messages []modelgateway.Message
	var toolCalls []modelgateway.ToolCall
	if member, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range member.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				messages = append(messages, modelgateway.Message{Role: "assistant", Content: v.Value})
			case *brtypes.ContentBlockMemberToolUse:
				toolCalls = append(toolCalls, modelgateway.ToolCall{Name: aws.ToString(v.Value.Name), Payload: v.Value.Input})
			}
		}
	}
	usage := modelgateway.TokenUsage{}
	if out.Usage != nil {
		usage = modelgateway.TokenUsage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return modelgateway.Response{
		Content:    messages,
		ToolCalls:  toolCalls,
		Usage:      usage,
		StopReason: string(out.StopReason),
	}
}
