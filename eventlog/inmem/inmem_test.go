package inmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/event"
	"lion.run/lion/eventlog/inmem"
	"lion.run/lion/ids"
)

func TestAppendAndListInOrder(t *testing.T) {
	store := inmem.New()
	ctx := context.Background()

	task := ids.NewTaskID()
	correlation := ids.NewCorrelationID()
	_, err := store.Append(ctx, event.NewTaskSubmitted(correlation, task, nil))
	require.NoError(t, err)
	_, err = store.Append(ctx, event.NewTaskCompleted(correlation, task, nil))
	require.NoError(t, err)

	page, err := store.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.False(t, page.HasMore)
	require.Equal(t, event.TaskSubmitted, page.Records[0].Event.EventType())
	require.Equal(t, event.TaskCompleted, page.Records[1].Event.EventType())
}

func TestSinceFiltersByCorrelation(t *testing.T) {
	store := inmem.New()
	ctx := context.Background()

	correlationA := ids.NewCorrelationID()
	correlationB := ids.NewCorrelationID()
	task := ids.NewTaskID()

	_, err := store.Append(ctx, event.NewTaskSubmitted(correlationA, task, nil))
	require.NoError(t, err)
	_, err = store.Append(ctx, event.NewTaskSubmitted(correlationB, task, nil))
	require.NoError(t, err)

	records, err := store.Since(ctx, correlationA)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, correlationA, records[0].Event.Correlation())
}

func TestStatsCountsByType(t *testing.T) {
	store := inmem.New()
	ctx := context.Background()
	task := ids.NewTaskID()
	correlation := ids.NewCorrelationID()

	_, err := store.Append(ctx, event.NewTaskSubmitted(correlation, task, nil))
	require.NoError(t, err)
	_, err = store.Append(ctx, event.NewTaskSubmitted(correlation, task, nil))
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalEvents)
	require.EqualValues(t, 2, stats.CountsByType[event.TaskSubmitted])
}
