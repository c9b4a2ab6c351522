// Package eventlog implements the Event Log (C2): a durable, append-only,
// replayable record of every SystemEvent the kernel has emitted.
//
// The Store contract and cursor-based pagination are grounded on the
// teacher's run log (append-only, store-assigned opaque ids, forward
// pagination via an opaque cursor), generalized from one run's hook events to
// every kernel SystemEvent and widened with a Replay callback and aggregate
// Stats projection the spec requires.
package eventlog

import (
	"context"
	"time"

	"lion.run/lion/event"
	"lion.run/lion/ids"
)

// Record is one persisted log entry: the original SystemEvent plus the
// store-assigned sequence position used for List cursors.
type Record struct {
	Seq      uint64
	Event    event.SystemEvent
	StoredAt time.Time
}

// Page is a forward page of records.
type Page struct {
	Records    []Record
	NextCursor uint64
	HasMore    bool
}

// Stats is the aggregate projection over the whole log (§4.2: event counts
// per type, log size, oldest/newest timestamps).
type Stats struct {
	TotalEvents  uint64
	CountsByType map[event.Type]uint64
	OldestAt     time.Time
	NewestAt     time.Time
}

// Store is the Event Log's backend. Append returns once the backend has
// stored the event. How long it survives depends on the backend: the
// in-memory store (eventlog/inmem, the default) keeps events only for the
// life of the process, while eventlog/mongostore persists them.
type Store interface {
	Append(ctx context.Context, evt event.SystemEvent) (Record, error)
	List(ctx context.Context, cursor uint64, limit int) (Page, error)
	Since(ctx context.Context, correlation ids.CorrelationID) ([]Record, error)
	Replay(ctx context.Context, fn func(Record) error) error
	Stats(ctx context.Context) (Stats, error)
}

// ErrNotFound is returned when a requested cursor position no longer exists
// (e.g. a store that prunes old events).
type ErrNotFound struct{ Cursor uint64 }

func (e *ErrNotFound) Error() string {
	return "eventlog: cursor not found"
}
