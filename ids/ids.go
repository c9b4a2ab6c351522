// Package ids defines the opaque identifier types threaded through every
// kernel component. All identifiers share the same 128-bit representation;
// distinct Go types exist only to catch mismatched identifiers at compile
// time, not because the values differ in shape.
package ids

import "github.com/google/uuid"

// ID is the shared 128-bit representation behind every identifier type in
// this package. Equality is bitwise; ordering is not meaningful.
type ID uuid.UUID

// Nil is the zero-valued ID, used to represent "no identifier".
var Nil ID

// New returns a freshly generated random (v4) ID.
func New() ID {
	return ID(uuid.New())
}

// String renders the canonical 8-4-4-4-12 hex form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Parse decodes a canonical string form into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as plain
// strings in JSON/YAML documents.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

type (
	// PluginID identifies a loaded plugin instance.
	PluginID ID
	// AgentID identifies a spawned agent.
	AgentID ID
	// TaskID identifies a submitted task.
	TaskID ID
	// WorkflowID identifies a registered workflow definition.
	WorkflowID ID
	// InstanceID identifies a running workflow instance.
	InstanceID ID
	// StepID identifies a step within a workflow definition.
	StepID ID
	// CorrelationID groups events belonging to the same logical request.
	CorrelationID ID
	// EventID uniquely identifies a single SystemEvent.
	EventID ID
)

// NewPluginID, NewAgentID, ... generate fresh identifiers of each type.
func NewPluginID() PluginID           { return PluginID(New()) }
func NewAgentID() AgentID             { return AgentID(New()) }
func NewTaskID() TaskID               { return TaskID(New()) }
func NewWorkflowID() WorkflowID       { return WorkflowID(New()) }
func NewInstanceID() InstanceID       { return InstanceID(New()) }
func NewStepID() StepID               { return StepID(New()) }
func NewCorrelationID() CorrelationID { return CorrelationID(New()) }
func NewEventID() EventID             { return EventID(New()) }

func (id PluginID) String() string      { return ID(id).String() }
func (id AgentID) String() string       { return ID(id).String() }
func (id TaskID) String() string        { return ID(id).String() }
func (id WorkflowID) String() string    { return ID(id).String() }
func (id InstanceID) String() string    { return ID(id).String() }
func (id StepID) String() string        { return ID(id).String() }
func (id CorrelationID) String() string { return ID(id).String() }
func (id EventID) String() string       { return ID(id).String() }
func (id PluginID) IsNil() bool         { return ID(id).IsNil() }
func (id AgentID) IsNil() bool          { return ID(id).IsNil() }
func (id TaskID) IsNil() bool           { return ID(id).IsNil() }
func (id WorkflowID) IsNil() bool       { return ID(id).IsNil() }
func (id InstanceID) IsNil() bool       { return ID(id).IsNil() }
func (id StepID) IsNil() bool           { return ID(id).IsNil() }
func (id CorrelationID) IsNil() bool    { return ID(id).IsNil() }
func (id EventID) IsNil() bool          { return ID(id).IsNil() }
