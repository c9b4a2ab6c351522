package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/config"
	"lion.run/lion/scheduler"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.BackendInMemory, cfg.EventLog.Backend)
	require.Equal(t, scheduler.FIFO, cfg.Scheduler.Policy)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
event_log:
  backend: mongo
  mongo_uri: mongodb://localhost:27017
scheduler:
  policy: priority
  max_in_flight: 4
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.BackendMongo, cfg.EventLog.Backend)
	require.Equal(t, "mongodb://localhost:27017", cfg.EventLog.MongoURI)
	require.Equal(t, scheduler.Priority, cfg.Scheduler.Policy)
	require.Equal(t, 4, cfg.Scheduler.MaxInFlight)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lion.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  max_in_flight: 4\n"), 0o600))
	t.Setenv("LION_SCHEDULER_MAX_IN_FLIGHT", "9")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Scheduler.MaxInFlight)
}
