package inmem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lion.run/lion/engine"
	"lion.run/lion/engine/inmem"
)

func TestStartWorkflowRunsActivityAndWaits(t *testing.T) {
	e := inmem.New()
	ctx := context.Background()

	require.NoError(t, e.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: "double",
		Handler: func(ctx context.Context, input any) (any, error) {
			return input.(int) * 2, nil
		},
	}))
	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "doubler",
		Handler: func(wctx engine.WorkflowContext, input any) (any, error) {
			var out int
			if err := wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{Name: "double", Input: input}, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}))

	h, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "run-1", Workflow: "doubler", Input: 21})
	require.NoError(t, err)

	var result int
	require.NoError(t, h.Wait(ctx, &result))
	require.Equal(t, 42, result)
}

func TestSignalChannelDeliversToRunningWorkflow(t *testing.T) {
	e := inmem.New()
	ctx := context.Background()
	received := make(chan string, 1)

	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "waiter",
		Handler: func(wctx engine.WorkflowContext, input any) (any, error) {
			var sig string
			if err := wctx.SignalChannel("go").Receive(wctx.Context(), &sig); err != nil {
				return nil, err
			}
			received <- sig
			return sig, nil
		},
	}))

	h, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "run-2", Workflow: "waiter"})
	require.NoError(t, err)
	require.NoError(t, h.Signal(ctx, "go", "proceed"))

	select {
	case sig := <-received:
		require.Equal(t, "proceed", sig)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal delivery")
	}
}

func TestWaitPropagatesActivityError(t *testing.T) {
	e := inmem.New()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, e.RegisterActivity(ctx, engine.ActivityDefinition{
		Name:    "fail",
		Handler: func(ctx context.Context, input any) (any, error) { return nil, boom },
	}))
	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "failer",
		Handler: func(wctx engine.WorkflowContext, input any) (any, error) {
			var out any
			return nil, wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{Name: "fail"}, &out)
		},
	}))

	h, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "run-3", Workflow: "failer"})
	require.NoError(t, err)

	var out any
	err = h.Wait(ctx, &out)
	require.EqualError(t, err, "boom")
}
