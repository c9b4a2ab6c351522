// Package workflow implements the Workflow/Saga Coordinator (C7):
// dependency-ordered step execution with reverse-order compensation on
// failure or explicit abort.
//
// The mutable-state-threaded-through-a-loop shape (a small struct evolving
// as steps complete, helpers mutating it in place rather than a pile of
// loose return values) follows the teacher's workflow run loop; the DAG
// validation and reverse-topological compensation walk are this package's
// own, since the teacher's workflows are single-chain agent turns, not
// general step DAGs.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lion.run/lion/errkind"
	"lion.run/lion/event"
	"lion.run/lion/ids"
)

// Status is a WorkflowInstance's lifecycle state (§4.7).
type Status string

const (
	StatusCreated      Status = "created"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCompensating Status = "compensating"
	StatusAborted      Status = "aborted"
)

// StepStatus is one step's lifecycle state within an instance.
type StepStatus string

const (
	StepPending     StepStatus = "pending"
	StepRunning     StepStatus = "running"
	StepCompleted   StepStatus = "completed"
	StepFailed      StepStatus = "failed"
	StepCompensated StepStatus = "compensated"
	StepSkipped     StepStatus = "skipped"
)

// RetryPolicy bounds how many times a failed step is retried before the
// workflow is considered failed, with exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	BackoffCoefficient float64
}

func (r RetryPolicy) delay(attempt int) time.Duration {
	if r.InitialInterval <= 0 {
		return 0
	}
	coeff := r.BackoffCoefficient
	if coeff <= 0 {
		coeff = 1
	}
	d := r.InitialInterval
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * coeff)
	}
	return d
}

// StepDef is one node of a workflow's DAG.
type StepDef struct {
	ID           ids.StepID
	Name         string
	Action       string
	DependsOn    []ids.StepID
	Compensation string // action name invoked on rollback; empty means no compensation
	Retry        RetryPolicy
}

// Definition is a registered WorkflowDefinition: an immutable DAG of steps.
type Definition struct {
	ID    ids.WorkflowID
	Name  string
	Steps []StepDef
}

// StepContext is passed to a StepRunner when its step becomes eligible to
// run (all DependsOn steps completed).
type StepContext struct {
	InstanceID   ids.InstanceID
	StepID       ids.StepID
	Action       string
	Input        []byte
	PriorOutputs map[ids.StepID][]byte
}

// StepRunner executes one step's action or its compensation, looked up by
// action name. The same Runner handles both forward execution and
// compensation; compensation calls carry the step's own output (if any) as
// Input so the runner can undo exactly what it did.
type StepRunner interface {
	Run(ctx context.Context, action string, sc StepContext) ([]byte, error)
}

// StepRunnerFunc adapts a function to StepRunner.
type StepRunnerFunc func(ctx context.Context, action string, sc StepContext) ([]byte, error)

func (f StepRunnerFunc) Run(ctx context.Context, action string, sc StepContext) ([]byte, error) {
	return f(ctx, action, sc)
}

// StepRecord is one step's observed state within an Instance.
type StepRecord struct {
	Status   StepStatus
	Output   []byte
	Attempts int
	Err      string
}

// Instance is one WorkflowInstance: a running or finished execution of a
// Definition.
type Instance struct {
	ID           ids.InstanceID
	DefinitionID ids.WorkflowID
	Correlation  ids.CorrelationID
	Status       Status
	Steps        map[ids.StepID]StepRecord
	StartedAt    time.Time
	EndedAt      time.Time
	Reason       string
}

// Emitter publishes one of the step/workflow-lifecycle SystemEvent variants
// (§3) as the Coordinator observes the corresponding transition. The
// Emitter New installs by default is a no-op, which is enough for tests that
// only care about StepRunner dispatch and final Instance state.
type Emitter func(ctx context.Context, evt event.SystemEvent)

// Coordinator is the Workflow/Saga Coordinator (C7).
type Coordinator struct {
	mu          sync.Mutex
	definitions map[ids.WorkflowID]Definition
	instances   map[ids.InstanceID]*Instance
	aborts      map[ids.InstanceID]*abortState
	runner      StepRunner
	emit        Emitter
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithEmitter sets the Emitter a Coordinator publishes step/workflow
// lifecycle events through (spec §3: StepStarted/StepCompleted/StepFailed/
// CompensationStarted/WorkflowCompleted/WorkflowAborted).
func WithEmitter(e Emitter) Option {
	return func(c *Coordinator) { c.emit = e }
}

// abortState tracks a pending operator-initiated abort for one running
// instance; the run loop consults it between steps (§4.7: in-flight steps
// are allowed to finish, remaining steps are skipped in favor of
// compensation).
type abortState struct {
	requested bool
	reason    string
}

// New constructs a Coordinator dispatching step execution to runner.
func New(runner StepRunner, opts ...Option) *Coordinator {
	c := &Coordinator{
		definitions: make(map[ids.WorkflowID]Definition),
		instances:   make(map[ids.InstanceID]*Instance),
		aborts:      make(map[ids.InstanceID]*abortState),
		runner:      runner,
		emit:        func(context.Context, event.SystemEvent) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register validates def's DAG (every DependsOn reference exists, no cycle)
// and stores it. A cyclic or otherwise invalid definition is rejected at
// registration, never discovered mid-execution (§4.7).
func (c *Coordinator) Register(def Definition) error {
	order, err := topoSort(def.Steps)
	if err != nil {
		return errkind.New(errkind.KindInput, err.Error())
	}
	_ = order

	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[def.ID] = def
	return nil
}

// topoSort returns steps in an order where every step follows all of its
// dependencies, or an error if the DAG has a cycle or a dangling reference.
func topoSort(steps []StepDef) ([]StepDef, error) {
	byID := make(map[ids.StepID]StepDef, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("workflow: step %s depends on unknown step %s", s.ID, dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ids.StepID]int, len(steps))
	var order []StepDef
	var visit func(ids.StepID) error
	visit = func(id ids.StepID) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("workflow: dependency cycle detected at step %s", id)
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, byID[id])
		return nil
	}
	for _, s := range steps {
		if err := visit(s.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Start creates a new Instance of definitionID and launches it; it returns
// the instance id as soon as the instance is registered, without waiting for
// any step to run. Callers poll Status (or watch the Event Log) to observe
// progress. correlation is stamped on every step/workflow lifecycle event
// the instance's run emits, so operators can group them with the
// WorkflowStarted event the caller itself publishes.
func (c *Coordinator) Start(ctx context.Context, correlation ids.CorrelationID, definitionID ids.WorkflowID, input []byte) (ids.InstanceID, error) {
	c.mu.Lock()
	def, ok := c.definitions[definitionID]
	c.mu.Unlock()
	if !ok {
		return ids.InstanceID(ids.Nil), errkind.New(errkind.KindInput, "workflow: unknown definition "+definitionID.String())
	}

	order, err := topoSort(def.Steps)
	if err != nil {
		return ids.InstanceID(ids.Nil), errkind.New(errkind.KindInput, err.Error())
	}

	instance := &Instance{
		ID:           ids.NewInstanceID(),
		DefinitionID: definitionID,
		Correlation:  correlation,
		Status:       StatusRunning,
		Steps:        make(map[ids.StepID]StepRecord, len(def.Steps)),
		StartedAt:    time.Now(),
	}
	for _, s := range def.Steps {
		instance.Steps[s.ID] = StepRecord{Status: StepPending}
	}

	c.mu.Lock()
	c.instances[instance.ID] = instance
	c.aborts[instance.ID] = &abortState{}
	c.mu.Unlock()

	go c.run(ctx, def, order, instance, input)
	return instance.ID, nil
}

// run drives one instance's steps to completion, compensating in reverse
// order on the first unrecoverable step failure or on an operator abort
// observed between steps.
func (c *Coordinator) run(ctx context.Context, def Definition, order []StepDef, instance *Instance, input []byte) {
	outputs := make(map[ids.StepID][]byte)
	completed := make([]StepDef, 0, len(order))
	var failure error
	aborted := false

	for _, step := range order {
		if failure == nil {
			if reason, requested := c.abortRequested(instance.ID); requested {
				failure = fmt.Errorf("%s", reason)
				aborted = true
			}
		}

		if failure != nil {
			c.mu.Lock()
			rec := instance.Steps[step.ID]
			rec.Status = StepSkipped
			instance.Steps[step.ID] = rec
			c.mu.Unlock()
			continue
		}

		c.mu.Lock()
		instance.Steps[step.ID] = StepRecord{Status: StepRunning}
		c.mu.Unlock()
		c.emit(ctx, event.NewStepStarted(instance.Correlation, instance.ID, step.ID))

		out, err := c.runStepWithRetry(ctx, instance.ID, step, input, outputs)

		c.mu.Lock()
		if err != nil {
			instance.Steps[step.ID] = StepRecord{Status: StepFailed, Err: err.Error()}
			failure = err
		} else {
			instance.Steps[step.ID] = StepRecord{Status: StepCompleted, Output: out}
			outputs[step.ID] = out
			completed = append(completed, step)
		}
		c.mu.Unlock()

		if err != nil {
			c.emit(ctx, event.NewStepFailed(instance.Correlation, instance.ID, step.ID, err.Error()))
		} else {
			c.emit(ctx, event.NewStepCompleted(instance.Correlation, instance.ID, step.ID, out))
		}
	}

	if failure == nil {
		c.finish(instance, StatusCompleted, "")
		c.emit(ctx, event.NewWorkflowCompleted(instance.Correlation, instance.ID))
		return
	}

	terminal := StatusFailed
	if aborted {
		terminal = StatusAborted
	}
	c.compensate(ctx, instance, completed, outputs, failure.Error(), terminal)
}

func (c *Coordinator) abortRequested(instanceID ids.InstanceID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.aborts[instanceID]
	if !ok || !state.requested {
		return "", false
	}
	return state.reason, true
}

func (c *Coordinator) runStepWithRetry(ctx context.Context, instanceID ids.InstanceID, step StepDef, input []byte, outputs map[ids.StepID][]byte) ([]byte, error) {
	maxAttempts := step.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(step.Retry.delay(attempt)):
			}
		}
		out, err := c.runner.Run(ctx, step.Action, StepContext{
			InstanceID:   instanceID,
			StepID:       step.ID,
			Action:       step.Action,
			Input:        input,
			PriorOutputs: outputs,
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// compensate runs completed steps' Compensation actions in reverse order,
// per §4.7's saga semantics, then marks the instance terminal with status.
// A compensation action with no registered handler name is a no-op (the
// step never claimed external side effects).
func (c *Coordinator) compensate(ctx context.Context, instance *Instance, completed []StepDef, outputs map[ids.StepID][]byte, reason string, status Status) {
	c.setStatus(instance, StatusCompensating, reason)

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensation == "" {
			continue
		}
		c.emit(ctx, event.NewCompensationStarted(instance.Correlation, instance.ID, step.ID))
		_, err := c.runner.Run(ctx, step.Compensation, StepContext{
			InstanceID:   instance.ID,
			StepID:       step.ID,
			Action:       step.Compensation,
			Input:        outputs[step.ID],
			PriorOutputs: outputs,
		})
		c.mu.Lock()
		rec := instance.Steps[step.ID]
		if err != nil {
			rec.Err = "compensation failed: " + err.Error()
		} else {
			rec.Status = StepCompensated
		}
		instance.Steps[step.ID] = rec
		c.mu.Unlock()
	}

	c.finish(instance, status, reason)
	c.emit(ctx, event.NewWorkflowAborted(instance.Correlation, instance.ID, reason))
}

// Abort requests that instanceID stop scheduling further steps and
// compensate whatever has already completed. It does not interrupt a step
// currently in flight; that step is allowed to finish, then the run loop
// observes the request before starting the next one (§4.7: "idempotent
// cancellation", mirrored here from the Scheduler's not-yet-dispatched-task
// semantics). Aborting an already-terminal instance is a no-op.
func (c *Coordinator) Abort(ctx context.Context, instanceID ids.InstanceID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	instance, ok := c.instances[instanceID]
	if !ok {
		return errkind.New(errkind.KindInput, "workflow: unknown instance "+instanceID.String())
	}
	if isTerminal(instance.Status) {
		return nil
	}
	state, ok := c.aborts[instanceID]
	if !ok {
		state = &abortState{}
		c.aborts[instanceID] = state
	}
	state.requested = true
	state.reason = "aborted by operator"
	return nil
}

// Status returns a snapshot of instanceID's current state.
func (c *Coordinator) Status(instanceID ids.InstanceID) (Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance, ok := c.instances[instanceID]
	if !ok {
		return Instance{}, errkind.New(errkind.KindInput, "workflow: unknown instance "+instanceID.String())
	}
	return *instance, nil
}

func (c *Coordinator) setStatus(instance *Instance, status Status, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance.Status = status
	instance.Reason = reason
}

func (c *Coordinator) finish(instance *Instance, status Status, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance.Status = status
	instance.Reason = reason
	instance.EndedAt = time.Now()
}

func isTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}
