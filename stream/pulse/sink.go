// Package pulse implements a stream.Sink that publishes kernel events onto
// goa.design/pulse streams. It mirrors the layering used by Pulse
// deployments elsewhere: services build a Redis client, pass it to the
// Pulse client, and hand the resulting sink to whatever component streams
// task output to clients.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lion.run/lion/stream"
	"lion.run/lion/stream/pulse/clients/pulse"
)

type (
	// Options configures the Pulse sink.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client pulse.Client
		// StreamID derives the target Pulse stream from an event. Defaults to
		// `correlation/<CorrelationID>`.
		StreamID func(stream.Event) (string, error)
		// MarshalEnvelope overrides the envelope serialization (primarily for
		// tests).
		MarshalEnvelope func(Envelope) ([]byte, error)
		// OnPublished, when set, is invoked after an event has been
		// successfully written to the underlying Pulse stream. If it
		// returns an error, Send fails and callers should treat the event
		// as not fully emitted.
		OnPublished func(context.Context, PublishedEvent) error
	}

	// Sink publishes stream.Event values into Pulse streams. Thread-safe for
	// concurrent Send calls.
	Sink struct {
		client pulse.Client
		opts   sinkOptions
	}

	sinkOptions struct {
		streamID        func(stream.Event) (string, error)
		marshalEnvelope func(Envelope) ([]byte, error)
		onPublished     func(context.Context, PublishedEvent) error
	}

	// Envelope wraps a stream.Event for transmission over a Pulse stream,
	// adding metadata and serializing the payload as JSON.
	Envelope struct {
		// Type identifies the event kind (e.g. "task_completed").
		Type string `json:"type"`
		// CorrelationID links the event to the request it belongs to.
		CorrelationID string `json:"correlation_id"`
		// TaskID identifies the task the event describes, if any.
		TaskID string `json:"task_id,omitempty"`
		// Timestamp records when the event was published (UTC).
		Timestamp time.Time `json:"timestamp"`
		// Payload contains the event-specific data, if any.
		Payload any `json:"payload,omitempty"`
	}

	// PublishedEvent describes an event that has been successfully written
	// to a Pulse stream.
	PublishedEvent struct {
		Event    stream.Event
		StreamID string
		EntryID  string
	}
)

// NewSink constructs a Pulse-backed stream.Sink. opts.Client is required;
// StreamID and MarshalEnvelope default to the built-in implementations.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	cfg := sinkOptions{
		streamID:        defaultStreamID,
		marshalEnvelope: defaultMarshal,
		onPublished:     opts.OnPublished,
	}
	if opts.StreamID != nil {
		cfg.streamID = opts.StreamID
	}
	if opts.MarshalEnvelope != nil {
		cfg.marshalEnvelope = opts.MarshalEnvelope
	}
	return &Sink{client: opts.Client, opts: cfg}, nil
}

// Send publishes event to its derived Pulse stream: it resolves the stream
// name, wraps the event in an envelope, marshals it to JSON, and publishes
// it via the Pulse client. Thread-safe for concurrent calls.
func (s *Sink) Send(ctx context.Context, event stream.Event) error {
	streamID, err := s.opts.streamID(event)
	if err != nil {
		return err
	}
	handle, err := s.client.Stream(streamID)
	if err != nil {
		return err
	}
	env := Envelope{
		Type:          string(event.Type()),
		CorrelationID: event.Correlation().String(),
		TaskID:        event.TaskID().String(),
		Timestamp:     time.Now().UTC(),
		Payload:       event.Payload(),
	}
	payload, err := s.opts.marshalEnvelope(env)
	if err != nil {
		return err
	}
	entryID, err := handle.Add(ctx, env.Type, payload)
	if err != nil {
		return err
	}
	if cb := s.opts.onPublished; cb != nil {
		return cb(ctx, PublishedEvent{Event: event, StreamID: streamID, EntryID: entryID})
	}
	return nil
}

// Close releases resources owned by the sink, delegating to the underlying
// Pulse client.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// defaultStreamID derives the Pulse stream name from the event's
// CorrelationID. Returns an error if the CorrelationID is nil.
func defaultStreamID(event stream.Event) (string, error) {
	if event.Correlation().IsNil() {
		return "", errors.New("stream event missing correlation id")
	}
	return fmt.Sprintf("correlation/%s", event.Correlation().String()), nil
}

func defaultMarshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
