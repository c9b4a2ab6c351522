package ids_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"lion.run/lion/ids"
)

func TestNewIsUnique(t *testing.T) {
	t.Parallel()
	a, b := ids.New(), ids.New()
	require.NotEqual(t, a, b)
	require.False(t, a.IsNil())
}

func TestNilIsZeroValue(t *testing.T) {
	t.Parallel()
	var id ids.ID
	require.True(t, id.IsNil())
	require.Equal(t, ids.Nil, id)
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()
	id := ids.New()
	parsed, err := ids.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	type wrapper struct {
		Task ids.TaskID `json:"task_id"`
	}
	in := wrapper{Task: ids.NewTaskID()}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in.Task, out.Task)
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	_, err := ids.Parse("not-a-uuid")
	require.Error(t, err)
}
