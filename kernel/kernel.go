// Package kernel is the composition root: it wires the Event Bus, Event Log,
// Capability Gate, Policy Engine, Scheduler, Isolation Executor, and
// Workflow/Saga Coordinator into one Runtime and exposes the plugin/
// workflow/policy operations the CLI (and any other transport) drives.
//
// Runtime holds one typed field per subsystem rather than a string-keyed
// registry (§9 Design Notes: "prefer composition over inheritance
// gymnastics" extends to "prefer typed fields over a service locator").
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lion.run/lion/capability"
	"lion.run/lion/errkind"
	"lion.run/lion/event"
	"lion.run/lion/eventlog"
	"lion.run/lion/eventlog/inmem"
	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/modelgateway"
	"lion.run/lion/policy"
	"lion.run/lion/scheduler"
	"lion.run/lion/stream"
	"lion.run/lion/telemetry"
	"lion.run/lion/workflow"
)

// systemTaskPluginID is the reserved identity the built-in Task handler is
// registered under (§3 Task lifecycle: SubmitTask never targets a loaded
// plugin, so it needs an identity of its own rather than squatting on a
// caller-chosen one).
var systemTaskPluginID = ids.PluginID(ids.Nil)

// Runtime is the live kernel: one instance per process, owning every
// subsystem and the registry of loaded plugins.
type Runtime struct {
	Bus         event.Bus
	Log         eventlog.Store
	CapStore    capability.Store
	CapGate     *capability.Gate
	Policy      *policy.Engine
	Gate        *policy.CombinedGate
	Scheduler   *scheduler.Scheduler
	Actor       *executor.InProcessActor
	Runner      *executor.Runner
	Coordinator *workflow.Coordinator
	Stream      stream.Sink
	Gateway     *modelgateway.Gateway
	Logger      telemetry.Logger
	Metrics     telemetry.Metrics
	Tracer      telemetry.Tracer

	mu      sync.Mutex
	plugins map[ids.PluginID]Manifest
	pending map[ids.TaskID]*pendingDispatch
}

// pendingDispatch is the request awaiting admission that a dispatchSink
// resolves back into a live executor.Runner.Run call once the Scheduler
// decides it may proceed.
type pendingDispatch struct {
	req    executor.Request
	events chan executor.ExecutionEvent
}

// dispatchSink is the scheduler.Sink a Runtime's Scheduler dispatches
// admitted tasks to. It is the one place admission control (C5) meets
// execution (C6): every caller of submitAndRun goes through here instead of
// calling rt.Runner.Run directly.
type dispatchSink struct {
	rt *Runtime
}

func (ds *dispatchSink) Execute(ctx context.Context, t scheduler.ScheduledTask) error {
	ds.rt.mu.Lock()
	pd := ds.rt.pending[t.TaskID]
	delete(ds.rt.pending, t.TaskID)
	ds.rt.mu.Unlock()
	if pd == nil {
		return fmt.Errorf("kernel: scheduler dispatched unknown task %s", t.TaskID)
	}
	defer close(pd.events)

	events, err := ds.rt.Runner.Run(ctx, pd.req)
	if err != nil {
		pd.events <- executor.ExecutionEvent{Kind: executor.EventFailed, Reason: executor.FailureSandboxTrap, Err: err}
		return err
	}
	for evt := range events {
		pd.events <- evt
	}
	return nil
}

// Options configures a Runtime at construction. Zero-valued fields fall
// back to the in-memory/noop default for that subsystem, matching the
// teacher's "works out of the box in dev, swap in production backends via
// config" pattern.
type Options struct {
	Log             eventlog.Store
	SchedulerLimits scheduler.Limits
	SchedulerPolicy scheduler.Policy
	// StepRunner executes workflow steps. Defaults to a runner that echoes
	// the step's action name and input back as output, which is enough to
	// exercise the coordinator's DAG/compensation logic without a real
	// downstream dependency.
	StepRunner workflow.StepRunner
	// Stream, if set, receives every ExecutionEvent (not just terminal ones)
	// produced by a CallPlugin/CallAgent/SubmitTask dispatch, projected
	// through stream.FromExecutionEvent (SPEC_FULL.md §4.6 partial-output
	// streaming). Nil disables streaming; the Event Log still records the
	// terminal outcome either way.
	Stream stream.Sink
	// Gateway, if set, backs plugins whose manifest entry_point names an
	// "agent:<model>" handler (resolveHandler), giving the Agent lifecycle
	// (§3) a real model-calling backend.
	Gateway *modelgateway.Gateway
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer
}

func defaultStepRunner() workflow.StepRunner {
	return workflow.StepRunnerFunc(func(_ context.Context, action string, sc workflow.StepContext) ([]byte, error) {
		return []byte(fmt.Sprintf("%s:%s", action, string(sc.Input))), nil
	})
}

// echoHandler is the built-in Handler a manifest with an empty or "echo"
// entry_point resolves to: it returns its input unchanged. It gives
// `lionctl plugin load` + `lionctl plugin call` a working end-to-end path
// without requiring an operator-supplied handler.
func echoHandler(_ context.Context, req executor.Request, _ executor.HostCaller, _ executor.Emitter) ([]byte, error) {
	return req.Input, nil
}

// systemTaskHandler backs the reserved systemTaskPluginID identity that
// SubmitTask dispatches through.
func systemTaskHandler(_ context.Context, req executor.Request, _ executor.HostCaller, _ executor.Emitter) ([]byte, error) {
	return []byte("Processed: " + string(req.Input)), nil
}

// resolveHandler maps a manifest's entry_point to a concrete Handler.
// "" and "echo" resolve to the built-in echoHandler; "agent:<model>"
// resolves to a modelgateway-backed Handler (requires rt.Gateway to be
// configured); anything else is rejected at load time, the same way an
// unrecognized permission already is.
func (rt *Runtime) resolveHandler(entryPoint string) (executor.Handler, error) {
	switch {
	case entryPoint == "" || entryPoint == "echo":
		return executor.Handler(echoHandler), nil
	case strings.HasPrefix(entryPoint, "agent:"):
		if rt.Gateway == nil {
			return nil, fmt.Errorf("entry point %q requires a configured model gateway", entryPoint)
		}
		model := strings.TrimPrefix(entryPoint, "agent:")
		return modelgateway.NewAgentHandler(rt.Gateway, model), nil
	default:
		return nil, fmt.Errorf("unrecognized entry point %q", entryPoint)
	}
}

// New constructs a fully wired Runtime.
func New(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	logStore := opts.Log
	if logStore == nil {
		logStore = inmem.New()
	}

	bus := event.NewBus()
	capStore := capability.NewMemStore()
	capGate := capability.NewGate(capStore)
	// A loaded plugin's right to be invoked was already decided at load
	// time (capability grant of the synthetic "invoke" kind); the policy
	// layer's default-deny therefore needs one baseline system rule so that
	// a freshly loaded plugin is actually callable. Deny rules added later
	// via AddPolicyRule still win (DenyOverrides is the default strategy).
	policyEngine := policy.NewEngine([]policy.Rule{{
		ID: "system.default-invoke", Subject: "*", Object: "*", Action: "invoke",
		Effect: policy.EffectAllow, Priority: 0, Source: "system",
	}})
	combinedGate := policy.NewCombinedGate(capGate, policyEngine)
	mediator := &executor.HostCallMediator{Gate: combinedGate}
	actor := executor.NewInProcessActor(mediator, executor.WithInProcessTracer(tracer), executor.WithInProcessLogger(logger))
	runner := executor.NewRunner(actor, executor.WithTracer(tracer), executor.WithLogger(logger), executor.WithMetrics(metrics))

	schedPolicy := opts.SchedulerPolicy
	if schedPolicy == "" {
		schedPolicy = scheduler.FIFO
	}
	sched := scheduler.New(schedPolicy, nil, opts.SchedulerLimits)

	stepRunner := opts.StepRunner
	if stepRunner == nil {
		stepRunner = defaultStepRunner()
	}

	rt := &Runtime{
		Bus:       bus,
		Log:       logStore,
		CapStore:  capStore,
		CapGate:   capGate,
		Policy:    policyEngine,
		Gate:      combinedGate,
		Scheduler: sched,
		Actor:     actor,
		Runner:    runner,
		Stream:    opts.Stream,
		Gateway:   opts.Gateway,
		Logger:    logger,
		Metrics:   metrics,
		Tracer:    tracer,
		plugins:   make(map[ids.PluginID]Manifest),
		pending:   make(map[ids.TaskID]*pendingDispatch),
	}
	rt.Coordinator = workflow.New(stepRunner, workflow.WithEmitter(func(ctx context.Context, evt event.SystemEvent) {
		_ = rt.emit(ctx, evt)
	}))

	actor.Register(systemTaskPluginID.String(), executor.Handler(systemTaskHandler))

	_, _ = bus.Register(event.SubscriberFunc(func(ctx context.Context, evt event.SystemEvent) error {
		_, err := logStore.Append(ctx, evt)
		return err
	}))

	// The Scheduler's dispatch loop runs for the Runtime's whole process
	// lifetime; submitAndRun feeds it via Submit and every admitted task is
	// handed back to the Runtime through dispatchSink.
	go sched.Run(context.Background(), &dispatchSink{rt: rt})

	return rt
}

// emit publishes evt and surfaces an infrastructure error if the Event Log
// refused the append (§7: "infrastructure errors ... fatal; the kernel
// refuses further work").
func (rt *Runtime) emit(ctx context.Context, evt event.SystemEvent) *errkind.Error {
	if err := rt.Bus.Publish(ctx, evt); err != nil {
		return errkind.Wrap(errkind.KindInfrastructure, "event log append failed", err)
	}
	return nil
}

// submitAndRun admits req through the Scheduler (C5) rather than calling
// rt.Runner.Run directly, so dispatch policy, rate limiting, and
// concurrency caps are on the real invocation path instead of dead code.
// Every ExecutionEvent req's run produces is projected through
// stream.FromExecutionEvent and forwarded to rt.Stream when configured; each
// EventPartialOutput additionally invokes partial, if non-nil, so callers
// can translate generic partial output into their own event vocabulary
// (CallAgent uses this for AgentPartialOutput). It returns the terminal
// event.
func (rt *Runtime) submitAndRun(ctx context.Context, correlation ids.CorrelationID, req executor.Request, category, subject string, partial func(chunk []byte)) (executor.ExecutionEvent, error) {
	pd := &pendingDispatch{req: req, events: make(chan executor.ExecutionEvent, 4)}

	rt.mu.Lock()
	rt.pending[req.TaskID] = pd
	rt.mu.Unlock()

	if _, err := rt.Scheduler.Submit(ctx, scheduler.ScheduledTask{
		TaskID:         req.TaskID,
		SubmittedAt:    time.Now(),
		CallerPluginID: req.Plugin,
		Category:       category,
		Subject:        subject,
	}, true); err != nil {
		rt.mu.Lock()
		delete(rt.pending, req.TaskID)
		rt.mu.Unlock()
		return executor.ExecutionEvent{}, err
	}

	var terminal executor.ExecutionEvent
	for evt := range pd.events {
		if rt.Stream != nil {
			_ = rt.Stream.Send(ctx, stream.FromExecutionEvent(correlation, req.TaskID, evt))
		}
		if evt.Kind == executor.EventPartialOutput && partial != nil {
			partial(evt.Chunk)
		}
		switch evt.Kind {
		case executor.EventCompleted, executor.EventFailed, executor.EventCancelled:
			terminal = evt
		}
	}
	if terminal.Kind == "" {
		return executor.ExecutionEvent{}, fmt.Errorf("kernel: execution stream closed without a terminal event")
	}
	return terminal, nil
}

// LoadPlugin validates manifest, grants the declared capabilities, and
// registers an in-process Handler for the plugin's entry point. A nil
// handler is resolved from the manifest's entry_point via resolveHandler
// instead of leaving the plugin unregistered, so a plugin loaded through
// the CLI (which never supplies one directly) is still callable. It returns
// the assigned PluginID, or a KindInput error (manifest rejected) or a
// KindCapabilityDenied error (declares an unrecognized permission) — see
// spec §6 plugin load exit codes 2 and 3 respectively.
func (rt *Runtime) LoadPlugin(ctx context.Context, correlation ids.CorrelationID, manifestRaw []byte, handler executor.Handler) (ids.PluginID, *errkind.Error) {
	manifest, err := ParseManifest(manifestRaw)
	if err != nil {
		return ids.PluginID(ids.Nil), errkind.Wrap(errkind.KindInput, "manifest rejected", err)
	}
	caps, err := loadCapabilities(manifest)
	if err != nil {
		return ids.PluginID(ids.Nil), errkind.Wrap(errkind.KindCapabilityDenied, "permission denied", err)
	}
	if handler == nil {
		resolved, err := rt.resolveHandler(manifest.EntryPoint)
		if err != nil {
			return ids.PluginID(ids.Nil), errkind.Wrap(errkind.KindInput, "manifest rejected", err)
		}
		handler = resolved
	}

	pluginID := ids.NewPluginID()
	// A successfully loaded plugin always holds the right to be invoked;
	// the declared permissions above gate what it may do once running, not
	// whether it may run at all.
	caps = append(caps, capability.Custom{CustomKind: "invoke"})
	for _, c := range caps {
		if err := rt.CapStore.Grant(ctx, pluginID, c); err != nil {
			return ids.PluginID(ids.Nil), errkind.Wrap(errkind.KindInfrastructure, "capability grant failed", err)
		}
	}
	rt.Actor.Register(pluginID.String(), handler)

	rt.mu.Lock()
	rt.plugins[pluginID] = manifest
	rt.mu.Unlock()

	if cerr := rt.emit(ctx, event.NewPluginLoaded(correlation, pluginID, manifest.Name)); cerr != nil {
		return ids.PluginID(ids.Nil), cerr
	}
	return pluginID, nil
}

// checkInvoke runs the P2 capability+policy check shared by CallPlugin and
// CallAgent: a dispatch that reaches execution must first clear both gates
// for the invocation itself, not just for the host calls it makes once
// running.
func (rt *Runtime) checkInvoke(ctx context.Context, correlation ids.CorrelationID, plugin ids.PluginID) *errkind.Error {
	invokeAccess := capability.CustomAccess{CustomKind: "invoke"}
	_, cerr := rt.Gate.Check(ctx, plugin, policy.Request{
		Subject: plugin.String(),
		Object:  plugin.String(),
		Action:  "invoke",
		Access:  invokeAccess,
	}, correlation)
	return cerr
}

// CallPlugin dispatches one invocation of plugin through the combined gate
// and the Scheduler/Isolation Executor, blocking for the terminal event. It
// returns the final result bytes on success.
func (rt *Runtime) CallPlugin(ctx context.Context, correlation ids.CorrelationID, plugin ids.PluginID, input []byte, limits executor.ResourceLimits) ([]byte, *errkind.Error) {
	rt.mu.Lock()
	_, known := rt.plugins[plugin]
	rt.mu.Unlock()
	if !known {
		return nil, errkind.New(errkind.KindInput, "unknown plugin "+plugin.String())
	}

	// P2: a PluginInvoked that reaches execution must first clear both the
	// capability gate and the policy engine for the invocation itself, not
	// just for the host calls it makes once running.
	if cerr := rt.checkInvoke(ctx, correlation, plugin); cerr != nil {
		_ = rt.emit(ctx, event.NewPluginError(correlation, plugin, cerr.Error()))
		return nil, cerr
	}

	taskID := ids.NewTaskID()
	if cerr := rt.emit(ctx, event.NewPluginInvoked(correlation, plugin, input)); cerr != nil {
		return nil, cerr
	}

	req := executor.Request{TaskID: taskID, Plugin: plugin, Input: input, Limits: limits}
	terminal, err := rt.submitAndRun(ctx, correlation, req, "plugin", plugin.String(), nil)
	if err != nil {
		_ = rt.emit(ctx, event.NewPluginError(correlation, plugin, err.Error()))
		return nil, errkind.Wrap(errkind.KindSandbox, "execution failed to start", err)
	}

	switch terminal.Kind {
	case executor.EventCompleted:
		_ = rt.emit(ctx, event.NewPluginResult(correlation, plugin, terminal.Result))
		return terminal.Result, nil
	case executor.EventCancelled:
		_ = rt.emit(ctx, event.NewPluginError(correlation, plugin, "cancelled"))
		return nil, errkind.New(errkind.KindResourceExceeded, "plugin invocation cancelled")
	default:
		msg := string(terminal.Reason)
		if terminal.Err != nil {
			msg = terminal.Err.Error()
		}
		_ = rt.emit(ctx, event.NewPluginError(correlation, plugin, msg))
		return nil, errkind.Wrap(classifyFailure(terminal.Reason), "plugin invocation failed", terminal.Err)
	}
}

// CallAgent dispatches one prompt to plugin's registered handler the same
// way CallPlugin does, but emits the Agent lifecycle (§3) instead of the
// Plugin lifecycle: AgentSpawned on admission, AgentPartialOutput for every
// streamed chunk the handler emits (the mechanism modelgateway.NewAgentHandler
// already drives through executor.Emitter), and AgentCompleted/AgentError on
// the terminal outcome. Any registered Handler may back an agent-style
// invocation; using CallAgent rather than CallPlugin as the entry point is
// what selects the Agent event vocabulary.
func (rt *Runtime) CallAgent(ctx context.Context, correlation ids.CorrelationID, plugin ids.PluginID, prompt []byte, limits executor.ResourceLimits) ([]byte, *errkind.Error) {
	rt.mu.Lock()
	_, known := rt.plugins[plugin]
	rt.mu.Unlock()
	if !known {
		return nil, errkind.New(errkind.KindInput, "unknown plugin "+plugin.String())
	}

	if cerr := rt.checkInvoke(ctx, correlation, plugin); cerr != nil {
		return nil, cerr
	}

	agentID := ids.NewAgentID()
	taskID := ids.NewTaskID()
	if cerr := rt.emit(ctx, event.NewAgentSpawned(correlation, agentID, string(prompt))); cerr != nil {
		return nil, cerr
	}

	req := executor.Request{TaskID: taskID, Plugin: plugin, Input: prompt, Limits: limits}
	terminal, err := rt.submitAndRun(ctx, correlation, req, "agent", plugin.String(), func(chunk []byte) {
		_ = rt.emit(ctx, event.NewAgentPartialOutput(correlation, agentID, string(chunk)))
	})
	if err != nil {
		_ = rt.emit(ctx, event.NewAgentError(correlation, agentID, err.Error()))
		return nil, errkind.Wrap(errkind.KindSandbox, "execution failed to start", err)
	}

	switch terminal.Kind {
	case executor.EventCompleted:
		_ = rt.emit(ctx, event.NewAgentCompleted(correlation, agentID, string(terminal.Result)))
		return terminal.Result, nil
	case executor.EventCancelled:
		_ = rt.emit(ctx, event.NewAgentError(correlation, agentID, "cancelled"))
		return nil, errkind.New(errkind.KindResourceExceeded, "agent invocation cancelled")
	default:
		msg := string(terminal.Reason)
		if terminal.Err != nil {
			msg = terminal.Err.Error()
		}
		_ = rt.emit(ctx, event.NewAgentError(correlation, agentID, msg))
		return nil, errkind.Wrap(classifyFailure(terminal.Reason), "agent invocation failed", terminal.Err)
	}
}

// SubmitTask dispatches payload through the built-in Task handler
// (systemTaskPluginID), emitting the Task lifecycle (§3): TaskSubmitted on
// admission, then TaskCompleted or TaskFailed on the terminal outcome. This
// is the path spec §8 scenario 1 ("Simple task") exercises.
func (rt *Runtime) SubmitTask(ctx context.Context, correlation ids.CorrelationID, payload []byte) ([]byte, *errkind.Error) {
	taskID := ids.NewTaskID()
	if cerr := rt.emit(ctx, event.NewTaskSubmitted(correlation, taskID, payload)); cerr != nil {
		return nil, cerr
	}

	req := executor.Request{TaskID: taskID, Plugin: systemTaskPluginID, Input: payload}
	terminal, err := rt.submitAndRun(ctx, correlation, req, "task", "system", nil)
	if err != nil {
		_ = rt.emit(ctx, event.NewTaskFailed(correlation, taskID, err.Error()))
		return nil, errkind.Wrap(errkind.KindSandbox, "execution failed to start", err)
	}

	switch terminal.Kind {
	case executor.EventCompleted:
		_ = rt.emit(ctx, event.NewTaskCompleted(correlation, taskID, terminal.Result))
		return terminal.Result, nil
	case executor.EventCancelled:
		_ = rt.emit(ctx, event.NewTaskFailed(correlation, taskID, "cancelled"))
		return nil, errkind.New(errkind.KindResourceExceeded, "task cancelled")
	default:
		msg := string(terminal.Reason)
		if terminal.Err != nil {
			msg = terminal.Err.Error()
		}
		_ = rt.emit(ctx, event.NewTaskFailed(correlation, taskID, msg))
		return nil, errkind.Wrap(classifyFailure(terminal.Reason), "task failed", terminal.Err)
	}
}

func classifyFailure(reason executor.FailureReason) errkind.Kind {
	switch reason {
	case executor.FailureCapabilityDenied:
		return errkind.KindCapabilityDenied
	case executor.FailurePolicyDenied:
		return errkind.KindPolicyDenied
	case executor.FailureResourceExceeded, executor.FailureTimeout:
		return errkind.KindResourceExceeded
	case executor.FailureSandboxTrap:
		return errkind.KindSandbox
	case executor.FailureCancelled:
		return errkind.KindResourceExceeded
	default:
		return errkind.KindKernelBug
	}
}

// UnloadPlugin drops plugin's capabilities and deregisters it. It reports
// KindInput if plugin was never loaded (spec §6 exit code 2).
func (rt *Runtime) UnloadPlugin(ctx context.Context, correlation ids.CorrelationID, plugin ids.PluginID) *errkind.Error {
	rt.mu.Lock()
	_, known := rt.plugins[plugin]
	if known {
		delete(rt.plugins, plugin)
	}
	rt.mu.Unlock()
	if !known {
		return errkind.New(errkind.KindInput, "unknown plugin "+plugin.String())
	}
	rt.CapStore.Drop(ctx, plugin)
	return rt.emit(ctx, event.NewPluginUnloaded(correlation, plugin))
}

// AddPolicyRule appends r to the policy engine's rule set.
func (rt *Runtime) AddPolicyRule(r policy.Rule) {
	rt.Policy.AddRule(r)
}

// ListPolicyRules returns every rule currently loaded.
func (rt *Runtime) ListPolicyRules() []policy.Rule {
	return rt.Policy.ListRules()
}

// RemovePolicyRule deletes the rule with the given id, reporting KindInput
// if no such rule exists.
func (rt *Runtime) RemovePolicyRule(id string) *errkind.Error {
	if !rt.Policy.RemoveRule(id) {
		return errkind.New(errkind.KindInput, "unknown policy rule "+id)
	}
	return nil
}

// RegisterWorkflow validates and registers def, returning a KindInput error
// on a dependency cycle or other invalid definition (spec §6 exit codes 2
// and 4).
func (rt *Runtime) RegisterWorkflow(def workflow.Definition) *errkind.Error {
	if err := rt.Coordinator.Register(def); err != nil {
		return errkind.Wrap(errkind.KindInput, "workflow definition rejected", err)
	}
	return nil
}

// StartWorkflow launches a new instance of definitionID and returns its
// InstanceID immediately (the coordinator runs it asynchronously). The
// Coordinator stamps correlation on every step/workflow lifecycle event the
// instance's run emits (spec §8 scenario 5; invariant I5), so they group
// with the WorkflowStarted event emitted here.
func (rt *Runtime) StartWorkflow(ctx context.Context, correlation ids.CorrelationID, definitionID ids.WorkflowID, input []byte) (ids.InstanceID, *errkind.Error) {
	instanceID, err := rt.Coordinator.Start(ctx, correlation, definitionID, input)
	if err != nil {
		return ids.InstanceID(ids.Nil), errkind.Wrap(errkind.KindInput, "workflow start failed", err)
	}
	_ = rt.emit(ctx, event.NewWorkflowStarted(correlation, instanceID, definitionID))
	return instanceID, nil
}

// WorkflowStatus returns a snapshot of instanceID's current state, or
// KindInput if the instance is unknown (spec §6 exit code 2).
func (rt *Runtime) WorkflowStatus(instanceID ids.InstanceID) (workflow.Instance, *errkind.Error) {
	instance, err := rt.Coordinator.Status(instanceID)
	if err != nil {
		return workflow.Instance{}, errkind.Wrap(errkind.KindInput, "unknown workflow instance", err)
	}
	return instance, nil
}

// AbortWorkflow requests compensation of instanceID; the running instance
// goroutine observes the request at its next step boundary.
func (rt *Runtime) AbortWorkflow(ctx context.Context, instanceID ids.InstanceID) *errkind.Error {
	if err := rt.Coordinator.Abort(ctx, instanceID); err != nil {
		return errkind.Wrap(errkind.KindInput, "abort failed", err)
	}
	return nil
}

// SystemStatus is the aggregate snapshot `system status` prints.
type SystemStatus struct {
	LogStats    eventlog.Stats
	LoadedCount int
}

// Status reports an aggregate system snapshot.
func (rt *Runtime) Status(ctx context.Context) (SystemStatus, error) {
	stats, err := rt.Log.Stats(ctx)
	if err != nil {
		return SystemStatus{}, fmt.Errorf("kernel: status: %w", err)
	}
	rt.mu.Lock()
	count := len(rt.plugins)
	rt.mu.Unlock()
	return SystemStatus{LogStats: stats, LoadedCount: count}, nil
}
