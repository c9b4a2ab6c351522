package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"lion.run/lion/ids"
	"lion.run/lion/scheduler"
)

type recordingSink struct {
	mu      sync.Mutex
	order   []ids.TaskID
	done    chan struct{}
	wantLen int
}

func newRecordingSink(want int) *recordingSink {
	return &recordingSink{done: make(chan struct{}), wantLen: want}
}

func (s *recordingSink) Execute(ctx context.Context, t scheduler.ScheduledTask) error {
	s.mu.Lock()
	s.order = append(s.order, t.TaskID)
	done := len(s.order) >= s.wantLen
	s.mu.Unlock()
	if done {
		close(s.done)
	}
	return nil
}

func TestFIFOOrderIgnoresPriority(t *testing.T) {
	t.Parallel()
	sch := scheduler.New(scheduler.FIFO, nil, scheduler.Limits{MaxInFlight: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newRecordingSink(3)
	go sch.Run(ctx, sink)

	first, err := sch.Submit(ctx, scheduler.ScheduledTask{Priority: 0}, false)
	require.NoError(t, err)
	second, err := sch.Submit(ctx, scheduler.ScheduledTask{Priority: 9}, false)
	require.NoError(t, err)
	third, err := sch.Submit(ctx, scheduler.ScheduledTask{Priority: 5}, false)
	require.NoError(t, err)

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []ids.TaskID{first, second, third}, sink.order)
}

func TestPriorityOrderDispatchesHighestFirst(t *testing.T) {
	t.Parallel()
	sch := scheduler.New(scheduler.Priority, nil, scheduler.Limits{MaxInFlight: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	low, err := sch.Submit(ctx, scheduler.ScheduledTask{Priority: 1}, false)
	require.NoError(t, err)
	high, err := sch.Submit(ctx, scheduler.ScheduledTask{Priority: 10}, false)
	require.NoError(t, err)

	sink := newRecordingSink(2)
	go sch.Run(ctx, sink)

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []ids.TaskID{high, low}, sink.order)
}

func TestSubmitReturnsBusyWhenSaturatedAndNotBlocking(t *testing.T) {
	t.Parallel()
	sch := scheduler.New(scheduler.FIFO, nil, scheduler.Limits{MaxInFlight: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blockUntil := make(chan struct{})
	sink := blockingSink{release: blockUntil}
	go sch.Run(ctx, sink)

	_, err := sch.Submit(ctx, scheduler.ScheduledTask{}, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := sch.Submit(ctx, scheduler.ScheduledTask{}, false)
		return err == scheduler.ErrBusy
	}, time.Second, 10*time.Millisecond)

	close(blockUntil)
}

type blockingSink struct{ release <-chan struct{} }

func (b blockingSink) Execute(ctx context.Context, t scheduler.ScheduledTask) error {
	<-b.release
	return nil
}

func TestCancelQueuedTaskPreventsDispatch(t *testing.T) {
	t.Parallel()
	sch := scheduler.New(scheduler.FIFO, nil, scheduler.Limits{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskID, err := sch.Submit(ctx, scheduler.ScheduledTask{}, false)
	require.NoError(t, err)

	result := sch.Cancel(taskID)
	require.Equal(t, scheduler.CancelOK, result)

	// Cancelling again is idempotent, not an error.
	require.Equal(t, scheduler.CancelNotFound, sch.Cancel(taskID))
}

func TestRateLimitedSubjectFailsAfterMaxWait(t *testing.T) {
	t.Parallel()
	sch := scheduler.New(scheduler.FIFO, nil, scheduler.Limits{
		RatePerSubject:  1,
		BurstPerSubject: 1,
		MaxRateWait:     50 * time.Millisecond,
	})
	ctx := context.Background()

	_, err := sch.Submit(ctx, scheduler.ScheduledTask{Subject: "plugin-a"}, false)
	require.NoError(t, err)

	_, err = sch.Submit(ctx, scheduler.ScheduledTask{Subject: "plugin-a"}, false)
	require.ErrorIs(t, err, scheduler.ErrRateLimited)
}
