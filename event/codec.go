package event

import (
	"encoding/json"
	"fmt"
	"time"

	"lion.run/lion/ids"
)

// schemaVersion is bumped whenever a wire-incompatible change is made to the
// envelope or a variant's payload shape. Readers MUST reject an envelope
// whose SchemaVersion is newer than the one they know rather than guess at
// decoding it
// (§6 Event log persistence: "new event variants must be ignorable by older
// readers or cause an explicit version-bump error").
const schemaVersion = 1

// Envelope is the self-describing wire form of a SystemEvent: a stable
// header (type, id, timestamp, correlation, schema version) plus an opaque
// payload whose shape is determined by Type.
type Envelope struct {
	SchemaVersion int               `json:"schema_version"`
	Type          Type              `json:"type"`
	ID            ids.EventID       `json:"event_id"`
	Timestamp     int64             `json:"timestamp_unix_nano"`
	Correlation   ids.CorrelationID `json:"correlation_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
}

// ErrUnsupportedSchemaVersion is returned by Decode when an envelope carries
// a schema version newer than this build understands.
type ErrUnsupportedSchemaVersion struct{ Version int }

func (e *ErrUnsupportedSchemaVersion) Error() string {
	return fmt.Sprintf("event: unsupported schema version %d (know up to %d)", e.Version, schemaVersion)
}

// Encode converts a SystemEvent into its wire Envelope.
func Encode(evt SystemEvent) (Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("event: marshal %s payload: %w", evt.EventType(), err)
	}
	return Envelope{
		SchemaVersion: schemaVersion,
		Type:          evt.EventType(),
		ID:            evt.ID(),
		Timestamp:     evt.Timestamp().UnixNano(),
		Correlation:   evt.Correlation(),
		Payload:       payload,
	}, nil
}

// Decode reconstructs a concrete SystemEvent from its wire Envelope. An
// unrecognized Type is not an error by itself — forward-compatible readers
// ignore variants they don't understand (§6) — callers should check for an
// *UnknownTypeError (errors.As) on the returned error to distinguish "skip
// this one" from a genuine decode failure.
func Decode(env Envelope) (SystemEvent, error) {
	if env.SchemaVersion > schemaVersion {
		return nil, &ErrUnsupportedSchemaVersion{Version: env.SchemaVersion}
	}
	b := base{id: env.ID, correlation: env.Correlation, timestamp: time.Unix(0, env.Timestamp)}

	switch env.Type {
	case TaskSubmitted:
		var v struct {
			TaskID  ids.TaskID `json:"TaskID"`
			Payload []byte     `json:"Payload"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &TaskSubmittedEvent{base: b, TaskID: v.TaskID, Payload: v.Payload}, nil
	case TaskCompleted:
		var v struct {
			TaskID ids.TaskID `json:"TaskID"`
			Result []byte     `json:"Result"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &TaskCompletedEvent{base: b, TaskID: v.TaskID, Result: v.Result}, nil
	case TaskFailed:
		var v struct {
			TaskID ids.TaskID `json:"TaskID"`
			Error  string     `json:"Error"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &TaskFailedEvent{base: b, TaskID: v.TaskID, Error: v.Error}, nil
	case PluginLoaded:
		var v struct {
			PluginID ids.PluginID `json:"PluginID"`
			Manifest string       `json:"Manifest"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &PluginLoadedEvent{base: b, PluginID: v.PluginID, Manifest: v.Manifest}, nil
	case PluginInvoked:
		var v struct {
			PluginID ids.PluginID `json:"PluginID"`
			Input    []byte       `json:"Input"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &PluginInvokedEvent{base: b, PluginID: v.PluginID, Input: v.Input}, nil
	case PluginResult:
		var v struct {
			PluginID ids.PluginID `json:"PluginID"`
			Output   []byte       `json:"Output"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &PluginResultEvent{base: b, PluginID: v.PluginID, Output: v.Output}, nil
	case PluginError:
		var v struct {
			PluginID ids.PluginID `json:"PluginID"`
			Error    string       `json:"Error"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &PluginErrorEvent{base: b, PluginID: v.PluginID, Error: v.Error}, nil
	case PluginUnloaded:
		var v struct {
			PluginID ids.PluginID `json:"PluginID"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &PluginUnloadedEvent{base: b, PluginID: v.PluginID}, nil
	case AgentSpawned:
		var v struct {
			AgentID ids.AgentID `json:"AgentID"`
			Prompt  string      `json:"Prompt"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &AgentSpawnedEvent{base: b, AgentID: v.AgentID, Prompt: v.Prompt}, nil
	case AgentPartialOutput:
		var v struct {
			AgentID ids.AgentID `json:"AgentID"`
			Chunk   string      `json:"Chunk"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &AgentPartialOutputEvent{base: b, AgentID: v.AgentID, Chunk: v.Chunk}, nil
	case AgentCompleted:
		var v struct {
			AgentID ids.AgentID `json:"AgentID"`
			Result  string      `json:"Result"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &AgentCompletedEvent{base: b, AgentID: v.AgentID, Result: v.Result}, nil
	case AgentError:
		var v struct {
			AgentID ids.AgentID `json:"AgentID"`
			Error   string      `json:"Error"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &AgentErrorEvent{base: b, AgentID: v.AgentID, Error: v.Error}, nil
	case WorkflowStarted:
		var v struct {
			InstanceID   ids.InstanceID `json:"InstanceID"`
			DefinitionID ids.WorkflowID `json:"DefinitionID"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &WorkflowStartedEvent{base: b, InstanceID: v.InstanceID, DefinitionID: v.DefinitionID}, nil
	case StepStarted:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
			StepID     ids.StepID     `json:"StepID"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &StepStartedEvent{base: b, InstanceID: v.InstanceID, StepID: v.StepID}, nil
	case StepCompleted:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
			StepID     ids.StepID     `json:"StepID"`
			Output     []byte         `json:"Output"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &StepCompletedEvent{base: b, InstanceID: v.InstanceID, StepID: v.StepID, Output: v.Output}, nil
	case StepFailed:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
			StepID     ids.StepID     `json:"StepID"`
			Error      string         `json:"Error"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &StepFailedEvent{base: b, InstanceID: v.InstanceID, StepID: v.StepID, Error: v.Error}, nil
	case CompensationStarted:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
			StepID     ids.StepID     `json:"StepID"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &CompensationStartedEvent{base: b, InstanceID: v.InstanceID, StepID: v.StepID}, nil
	case WorkflowCompleted:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &WorkflowCompletedEvent{base: b, InstanceID: v.InstanceID}, nil
	case WorkflowAborted:
		var v struct {
			InstanceID ids.InstanceID `json:"InstanceID"`
			Reason     string         `json:"Reason"`
		}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return &WorkflowAbortedEvent{base: b, InstanceID: v.InstanceID, Reason: v.Reason}, nil
	default:
		return nil, &UnknownTypeError{Type: env.Type}
	}
}

// UnknownTypeError signals a Type this build does not know how to decode.
// Forward-compatible callers may treat this as "skip", not a fatal error.
type UnknownTypeError struct{ Type Type }

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("event: unknown event type %q", e.Type)
}
