package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lion.run/lion/ids"
	"lion.run/lion/workflow"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (r *recordingRunner) Run(ctx context.Context, action string, sc workflow.StepContext) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, action)
	r.mu.Unlock()
	if r.fail[action] {
		return nil, errors.New("boom: " + action)
	}
	return []byte(action + "-output"), nil
}

func (r *recordingRunner) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// blockingRunner lets a test hold one named action in flight until the test
// releases it, so Abort can be called while the instance is demonstrably
// still running.
type blockingRunner struct {
	mu      sync.Mutex
	calls   []string
	holdOn  string
	release chan struct{}
	held    chan struct{}
}

func newBlockingRunner(holdOn string) *blockingRunner {
	return &blockingRunner{
		holdOn:  holdOn,
		release: make(chan struct{}),
		held:    make(chan struct{}, 1),
	}
}

func (r *blockingRunner) Run(ctx context.Context, action string, sc workflow.StepContext) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, action)
	r.mu.Unlock()
	if action == r.holdOn {
		select {
		case r.held <- struct{}{}:
		default:
		}
		<-r.release
	}
	return []byte(action + "-output"), nil
}

func step(id ids.StepID, action string, deps ...ids.StepID) workflow.StepDef {
	return workflow.StepDef{ID: id, Name: action, Action: action, DependsOn: deps}
}

func eventuallyStatus(t *testing.T, coord *workflow.Coordinator, instanceID ids.InstanceID, want workflow.Status) workflow.Instance {
	t.Helper()
	var status workflow.Instance
	require.Eventually(t, func() bool {
		s, err := coord.Status(instanceID)
		if err != nil {
			return false
		}
		status = s
		return s.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestRegisterRejectsCycle(t *testing.T) {
	a, b := ids.NewStepID(), ids.NewStepID()
	def := workflow.Definition{
		ID: ids.NewWorkflowID(),
		Steps: []workflow.StepDef{
			step(a, "a", b),
			step(b, "b", a),
		},
	}
	coord := workflow.New(&recordingRunner{fail: map[string]bool{}})
	err := coord.Register(def)
	require.Error(t, err)
}

func TestStartRunsStepsInDependencyOrder(t *testing.T) {
	a, b, c := ids.NewStepID(), ids.NewStepID(), ids.NewStepID()
	def := workflow.Definition{
		ID: ids.NewWorkflowID(),
		Steps: []workflow.StepDef{
			step(a, "fetch"),
			step(b, "transform", a),
			step(c, "store", b),
		},
	}
	runner := &recordingRunner{fail: map[string]bool{}}
	coord := workflow.New(runner)
	require.NoError(t, coord.Register(def))

	instanceID, err := coord.Start(context.Background(), ids.NewCorrelationID(), def.ID, nil)
	require.NoError(t, err)

	eventuallyStatus(t, coord, instanceID, workflow.StatusCompleted)
	require.Equal(t, []string{"fetch", "transform", "store"}, runner.snapshot())
}

func TestFailedStepTriggersReverseCompensation(t *testing.T) {
	a, b, c := ids.NewStepID(), ids.NewStepID(), ids.NewStepID()
	def := workflow.Definition{
		ID: ids.NewWorkflowID(),
		Steps: []workflow.StepDef{
			{ID: a, Name: "reserve", Action: "reserve", Compensation: "unreserve"},
			{ID: b, Name: "charge", Action: "charge", DependsOn: []ids.StepID{a}, Compensation: "refund"},
			{ID: c, Name: "ship", Action: "ship", DependsOn: []ids.StepID{b}},
		},
	}
	runner := &recordingRunner{fail: map[string]bool{"ship": true}}
	coord := workflow.New(runner)
	require.NoError(t, coord.Register(def))

	instanceID, err := coord.Start(context.Background(), ids.NewCorrelationID(), def.ID, nil)
	require.NoError(t, err)

	status := eventuallyStatus(t, coord, instanceID, workflow.StatusFailed)
	require.Equal(t, workflow.StepCompensated, status.Steps[b].Status)
	require.Equal(t, workflow.StepCompensated, status.Steps[a].Status)

	require.Equal(t, []string{"reserve", "charge", "ship", "refund", "unreserve"}, runner.snapshot())
}

func TestAbortCompensatesCompletedStepsInReverseOrder(t *testing.T) {
	a, b, c := ids.NewStepID(), ids.NewStepID(), ids.NewStepID()
	def := workflow.Definition{
		ID: ids.NewWorkflowID(),
		Steps: []workflow.StepDef{
			{ID: a, Name: "reserve", Action: "reserve", Compensation: "unreserve"},
			{ID: b, Name: "charge", Action: "charge", DependsOn: []ids.StepID{a}, Compensation: "refund"},
			{ID: c, Name: "ship", Action: "ship", DependsOn: []ids.StepID{b}},
		},
	}
	runner := newBlockingRunner("charge")
	coord := workflow.New(runner)
	require.NoError(t, coord.Register(def))

	instanceID, err := coord.Start(context.Background(), ids.NewCorrelationID(), def.ID, nil)
	require.NoError(t, err)

	select {
	case <-runner.held:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for charge step to start")
	}

	require.NoError(t, coord.Abort(context.Background(), instanceID))
	close(runner.release)

	status := eventuallyStatus(t, coord, instanceID, workflow.StatusAborted)
	require.Equal(t, workflow.StepCompensated, status.Steps[b].Status)
	require.Equal(t, workflow.StepCompensated, status.Steps[a].Status)

	// Aborting an already-terminal instance is idempotent.
	require.NoError(t, coord.Abort(context.Background(), instanceID))
}
