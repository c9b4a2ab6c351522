// Package event defines SystemEvent, the tagged sum type that is the
// central currency of the kernel. Every component communicates by
// publishing and consuming SystemEvents; an event is a pure datum, never
// an invocable — execution logic belongs to the scheduler and executor,
// not to the event type itself.
package event

import (
	"time"

	"lion.run/lion/ids"
)

type (
	// Type identifies the concrete variant of a SystemEvent.
	Type string

	// SystemEvent is the interface every concrete event variant implements.
	// Subscribers type-switch on the concrete type when they need structured
	// field access; EventType() lets them filter cheaply without a type assertion.
	SystemEvent interface {
		// EventType returns the variant constant (e.g. TaskSubmitted).
		EventType() Type
		// ID returns the unique identifier assigned to this event.
		ID() ids.EventID
		// Timestamp returns the monotonic wall-clock time the event was created.
		Timestamp() time.Time
		// Correlation returns the correlation id grouping related events, or
		// the nil ID if the event does not belong to a correlated chain.
		Correlation() ids.CorrelationID
	}

	// base carries the metadata every SystemEvent variant embeds by
	// composition (spec §9: prefer composition over inheritance gymnastics).
	base struct {
		id          ids.EventID
		timestamp   time.Time
		correlation ids.CorrelationID
	}
)

func newBase(correlation ids.CorrelationID) base {
	return base{id: ids.NewEventID(), timestamp: time.Now(), correlation: correlation}
}

func (b base) ID() ids.EventID                { return b.id }
func (b base) Timestamp() time.Time           { return b.timestamp }
func (b base) Correlation() ids.CorrelationID { return b.correlation }

// Event type constants, one per variant enumerated in spec.md §3.
const (
	TaskSubmitted Type = "task_submitted"
	TaskCompleted Type = "task_completed"
	TaskFailed    Type = "task_failed"

	PluginLoaded   Type = "plugin_loaded"
	PluginInvoked  Type = "plugin_invoked"
	PluginResult   Type = "plugin_result"
	PluginError    Type = "plugin_error"
	PluginUnloaded Type = "plugin_unloaded"

	AgentSpawned       Type = "agent_spawned"
	AgentPartialOutput Type = "agent_partial_output"
	AgentCompleted     Type = "agent_completed"
	AgentError         Type = "agent_error"

	WorkflowStarted     Type = "workflow_started"
	StepStarted         Type = "step_started"
	StepCompleted       Type = "step_completed"
	StepFailed          Type = "step_failed"
	CompensationStarted Type = "compensation_started"
	WorkflowCompleted   Type = "workflow_completed"
	WorkflowAborted     Type = "workflow_aborted"
)

type (
	// TaskSubmittedEvent announces a new unit of work admitted to the kernel.
	TaskSubmittedEvent struct {
		base
		TaskID  ids.TaskID
		Payload []byte
	}

	// TaskCompletedEvent reports the successful outcome of a task.
	TaskCompletedEvent struct {
		base
		TaskID ids.TaskID
		Result []byte
	}

	// TaskFailedEvent reports a task's terminal failure.
	TaskFailedEvent struct {
		base
		TaskID ids.TaskID
		Error  string
	}

	// PluginLoadedEvent announces a plugin manifest was accepted and a
	// capability set was granted.
	PluginLoadedEvent struct {
		base
		PluginID ids.PluginID
		Manifest string // serialized manifest, format-agnostic per Non-goals
	}

	// PluginInvokedEvent announces an invocation request dispatched to a plugin.
	PluginInvokedEvent struct {
		base
		PluginID ids.PluginID
		Input    []byte
	}

	// PluginResultEvent carries a plugin invocation's successful output.
	PluginResultEvent struct {
		base
		PluginID ids.PluginID
		Output   []byte
	}

	// PluginErrorEvent carries a plugin invocation's failure.
	PluginErrorEvent struct {
		base
		PluginID ids.PluginID
		Error    string
	}

	// PluginUnloadedEvent announces capability revocation and teardown.
	PluginUnloadedEvent struct {
		base
		PluginID ids.PluginID
	}

	// AgentSpawnedEvent announces a new agent execution starting from a prompt.
	AgentSpawnedEvent struct {
		base
		AgentID ids.AgentID
		Prompt  string
	}

	// AgentPartialOutputEvent carries one streamed chunk of agent output.
	AgentPartialOutputEvent struct {
		base
		AgentID ids.AgentID
		Chunk   string
	}

	// AgentCompletedEvent announces an agent run's final result.
	AgentCompletedEvent struct {
		base
		AgentID ids.AgentID
		Result  string
	}

	// AgentErrorEvent announces an agent run's terminal failure.
	AgentErrorEvent struct {
		base
		AgentID ids.AgentID
		Error   string
	}

	// WorkflowStartedEvent announces a workflow instance beginning execution.
	WorkflowStartedEvent struct {
		base
		InstanceID   ids.InstanceID
		DefinitionID ids.WorkflowID
	}

	// StepStartedEvent announces a workflow step transitioning to Running.
	StepStartedEvent struct {
		base
		InstanceID ids.InstanceID
		StepID     ids.StepID
	}

	// StepCompletedEvent announces a workflow step's successful completion.
	StepCompletedEvent struct {
		base
		InstanceID ids.InstanceID
		StepID     ids.StepID
		Output     []byte
	}

	// StepFailedEvent announces a workflow step's terminal failure (retries exhausted).
	StepFailedEvent struct {
		base
		InstanceID ids.InstanceID
		StepID     ids.StepID
		Error      string
	}

	// CompensationStartedEvent announces compensation beginning for a
	// previously-completed step.
	CompensationStartedEvent struct {
		base
		InstanceID ids.InstanceID
		StepID     ids.StepID
	}

	// WorkflowCompletedEvent announces every step of an instance completed.
	WorkflowCompletedEvent struct {
		base
		InstanceID ids.InstanceID
	}

	// WorkflowAbortedEvent announces a workflow instance terminating without
	// reaching Completed, along with the diagnostic reason.
	WorkflowAbortedEvent struct {
		base
		InstanceID ids.InstanceID
		Reason     string
	}
)

// New<Variant> constructors stamp a fresh event id/timestamp and accept an
// optional correlation id (ids.Nil when the event starts no correlated chain).

func NewTaskSubmitted(correlation ids.CorrelationID, taskID ids.TaskID, payload []byte) *TaskSubmittedEvent {
	return &TaskSubmittedEvent{base: newBase(correlation), TaskID: taskID, Payload: payload}
}
func NewTaskCompleted(correlation ids.CorrelationID, taskID ids.TaskID, result []byte) *TaskCompletedEvent {
	return &TaskCompletedEvent{base: newBase(correlation), TaskID: taskID, Result: result}
}
func NewTaskFailed(correlation ids.CorrelationID, taskID ids.TaskID, errMsg string) *TaskFailedEvent {
	return &TaskFailedEvent{base: newBase(correlation), TaskID: taskID, Error: errMsg}
}
func NewPluginLoaded(correlation ids.CorrelationID, pluginID ids.PluginID, manifest string) *PluginLoadedEvent {
	return &PluginLoadedEvent{base: newBase(correlation), PluginID: pluginID, Manifest: manifest}
}
func NewPluginInvoked(correlation ids.CorrelationID, pluginID ids.PluginID, input []byte) *PluginInvokedEvent {
	return &PluginInvokedEvent{base: newBase(correlation), PluginID: pluginID, Input: input}
}
func NewPluginResult(correlation ids.CorrelationID, pluginID ids.PluginID, output []byte) *PluginResultEvent {
	return &PluginResultEvent{base: newBase(correlation), PluginID: pluginID, Output: output}
}
func NewPluginError(correlation ids.CorrelationID, pluginID ids.PluginID, errMsg string) *PluginErrorEvent {
	return &PluginErrorEvent{base: newBase(correlation), PluginID: pluginID, Error: errMsg}
}
func NewPluginUnloaded(correlation ids.CorrelationID, pluginID ids.PluginID) *PluginUnloadedEvent {
	return &PluginUnloadedEvent{base: newBase(correlation), PluginID: pluginID}
}
func NewAgentSpawned(correlation ids.CorrelationID, agentID ids.AgentID, prompt string) *AgentSpawnedEvent {
	return &AgentSpawnedEvent{base: newBase(correlation), AgentID: agentID, Prompt: prompt}
}
func NewAgentPartialOutput(correlation ids.CorrelationID, agentID ids.AgentID, chunk string) *AgentPartialOutputEvent {
	return &AgentPartialOutputEvent{base: newBase(correlation), AgentID: agentID, Chunk: chunk}
}
func NewAgentCompleted(correlation ids.CorrelationID, agentID ids.AgentID, result string) *AgentCompletedEvent {
	return &AgentCompletedEvent{base: newBase(correlation), AgentID: agentID, Result: result}
}
func NewAgentError(correlation ids.CorrelationID, agentID ids.AgentID, errMsg string) *AgentErrorEvent {
	return &AgentErrorEvent{base: newBase(correlation), AgentID: agentID, Error: errMsg}
}
func NewWorkflowStarted(correlation ids.CorrelationID, instanceID ids.InstanceID, definitionID ids.WorkflowID) *WorkflowStartedEvent {
	return &WorkflowStartedEvent{base: newBase(correlation), InstanceID: instanceID, DefinitionID: definitionID}
}
func NewStepStarted(correlation ids.CorrelationID, instanceID ids.InstanceID, stepID ids.StepID) *StepStartedEvent {
	return &StepStartedEvent{base: newBase(correlation), InstanceID: instanceID, StepID: stepID}
}
func NewStepCompleted(correlation ids.CorrelationID, instanceID ids.InstanceID, stepID ids.StepID, output []byte) *StepCompletedEvent {
	return &StepCompletedEvent{base: newBase(correlation), InstanceID: instanceID, StepID: stepID, Output: output}
}
func NewStepFailed(correlation ids.CorrelationID, instanceID ids.InstanceID, stepID ids.StepID, errMsg string) *StepFailedEvent {
	return &StepFailedEvent{base: newBase(correlation), InstanceID: instanceID, StepID: stepID, Error: errMsg}
}
func NewCompensationStarted(correlation ids.CorrelationID, instanceID ids.InstanceID, stepID ids.StepID) *CompensationStartedEvent {
	return &CompensationStartedEvent{base: newBase(correlation), InstanceID: instanceID, StepID: stepID}
}
func NewWorkflowCompleted(correlation ids.CorrelationID, instanceID ids.InstanceID) *WorkflowCompletedEvent {
	return &WorkflowCompletedEvent{base: newBase(correlation), InstanceID: instanceID}
}
func NewWorkflowAborted(correlation ids.CorrelationID, instanceID ids.InstanceID, reason string) *WorkflowAbortedEvent {
	return &WorkflowAbortedEvent{base: newBase(correlation), InstanceID: instanceID, Reason: reason}
}

func (e *TaskSubmittedEvent) EventType() Type       { return TaskSubmitted }
func (e *TaskCompletedEvent) EventType() Type       { return TaskCompleted }
func (e *TaskFailedEvent) EventType() Type          { return TaskFailed }
func (e *PluginLoadedEvent) EventType() Type        { return PluginLoaded }
func (e *PluginInvokedEvent) EventType() Type       { return PluginInvoked }
func (e *PluginResultEvent) EventType() Type        { return PluginResult }
func (e *PluginErrorEvent) EventType() Type         { return PluginError }
func (e *PluginUnloadedEvent) EventType() Type      { return PluginUnloaded }
func (e *AgentSpawnedEvent) EventType() Type        { return AgentSpawned }
func (e *AgentPartialOutputEvent) EventType() Type  { return AgentPartialOutput }
func (e *AgentCompletedEvent) EventType() Type      { return AgentCompleted }
func (e *AgentErrorEvent) EventType() Type          { return AgentError }
func (e *WorkflowStartedEvent) EventType() Type     { return WorkflowStarted }
func (e *StepStartedEvent) EventType() Type         { return StepStarted }
func (e *StepCompletedEvent) EventType() Type       { return StepCompleted }
func (e *StepFailedEvent) EventType() Type          { return StepFailed }
func (e *CompensationStartedEvent) EventType() Type { return CompensationStarted }
func (e *WorkflowCompletedEvent) EventType() Type   { return WorkflowCompleted }
func (e *WorkflowAbortedEvent) EventType() Type     { return WorkflowAborted }
