// Package config loads the kernel's runtime configuration: scheduler
// concurrency/rate limits, the Event Log backend selection, and the
// connection strings for its durable stores (MongoDB, Redis/Pulse).
//
// Layering follows the teacher's flag+environment convention (example/cmd's
// main.go layers CLI flags over defaults): here a YAML file supplies
// defaults and environment variables, prefixed LION_, override individual
// fields — the same override direction, generalized from flags to env vars
// since the kernel runs as a long-lived daemon rather than a one-shot CLI
// invocation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"golang.org/x/time/rate"

	"lion.run/lion/scheduler"
)

// EventLogBackend selects the Event Log's durable Store implementation.
type EventLogBackend string

const (
	// BackendInMemory is the zero-configuration default: no data survives a
	// restart. Suitable for development and tests.
	BackendInMemory EventLogBackend = "memory"
	// BackendMongo persists events to a MongoDB collection.
	BackendMongo EventLogBackend = "mongo"
)

// Config is the kernel's fully resolved runtime configuration.
type Config struct {
	EventLog  EventLogConfig  `yaml:"event_log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Stream    StreamConfig    `yaml:"stream"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EventLogConfig selects and configures the Event Log's durable backend.
type EventLogConfig struct {
	Backend    EventLogBackend `yaml:"backend"`
	MongoURI   string          `yaml:"mongo_uri"`
	Database   string          `yaml:"database"`
	Collection string          `yaml:"collection"`
}

// SchedulerConfig configures the Scheduler's dispatch policy and Limits.
type SchedulerConfig struct {
	Policy             scheduler.Policy `yaml:"policy"`
	MaxInFlight        int              `yaml:"max_in_flight"`
	RatePerSubject     float64          `yaml:"rate_per_subject"`
	BurstPerSubject    int              `yaml:"burst_per_subject"`
	MaxRateWaitSeconds float64          `yaml:"max_rate_wait_seconds"`
}

// ToLimits converts the YAML-friendly SchedulerConfig into scheduler.Limits.
func (c SchedulerConfig) ToLimits() scheduler.Limits {
	return scheduler.Limits{
		MaxInFlight:     c.MaxInFlight,
		RatePerSubject:  rate.Limit(c.RatePerSubject),
		BurstPerSubject: c.BurstPerSubject,
		MaxRateWait:     time.Duration(c.MaxRateWaitSeconds * float64(time.Second)),
	}
}

// StreamConfig configures the Pulse-backed stream sink's Redis connection.
type StreamConfig struct {
	RedisAddr    string `yaml:"redis_addr"`
	RedisDB      int    `yaml:"redis_db"`
	StreamMaxLen int    `yaml:"stream_max_len"`
}

// TelemetryConfig selects the logging/tracing backend.
type TelemetryConfig struct {
	// Backend is "noop" or "clue" (goa.design/clue-backed logger/tracer).
	Backend string `yaml:"backend"`
	Debug   bool   `yaml:"debug"`
}

// Default returns the configuration the kernel runs with when no file or
// environment overrides are present: an in-memory event log, FIFO
// scheduling with no caps, and noop telemetry.
func Default() Config {
	return Config{
		EventLog:  EventLogConfig{Backend: BackendInMemory},
		Scheduler: SchedulerConfig{Policy: scheduler.FIFO},
		Telemetry: TelemetryConfig{Backend: "noop"},
	}
}

// Load reads path (if non-empty and present) as YAML over Default, then
// applies environment variable overrides, and returns the resolved Config.
// A missing path is not an error: the kernel falls back to Default plus
// whatever environment variables are set.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults + environment
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("LION_EVENT_LOG_BACKEND"); ok {
		cfg.EventLog.Backend = EventLogBackend(v)
	}
	if v, ok := os.LookupEnv("LION_MONGO_URI"); ok {
		cfg.EventLog.MongoURI = v
	}
	if v, ok := os.LookupEnv("LION_MONGO_DATABASE"); ok {
		cfg.EventLog.Database = v
	}
	if v, ok := os.LookupEnv("LION_MONGO_COLLECTION"); ok {
		cfg.EventLog.Collection = v
	}
	if v, ok := os.LookupEnv("LION_SCHEDULER_POLICY"); ok {
		cfg.Scheduler.Policy = scheduler.Policy(v)
	}
	if v, ok := os.LookupEnv("LION_SCHEDULER_MAX_IN_FLIGHT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.MaxInFlight = n
		}
	}
	if v, ok := os.LookupEnv("LION_REDIS_ADDR"); ok {
		cfg.Stream.RedisAddr = v
	}
	if v, ok := os.LookupEnv("LION_TELEMETRY_BACKEND"); ok {
		cfg.Telemetry.Backend = v
	}
	if v, ok := os.LookupEnv("LION_TELEMETRY_DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Debug = b
		}
	}
}
