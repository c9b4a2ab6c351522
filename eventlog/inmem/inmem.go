// Package inmem implements an in-memory eventlog.Store. It is the default
// store (§9 Open Question: durability defaults to in-memory for a
// single-node deployment; operators opt into eventlog/mongostore for
// durability across restarts), grounded on the teacher's run log in the same
// way its Mongo-backed store is.
package inmem

import (
	"context"
	"sync"
	"time"

	"lion.run/lion/event"
	"lion.run/lion/eventlog"
	"lion.run/lion/ids"
)

type Store struct {
	mu      sync.RWMutex
	records []eventlog.Record
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, evt event.SystemEvent) (eventlog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := eventlog.Record{
		Seq:      uint64(len(s.records)) + 1,
		Event:    evt,
		StoredAt: time.Now(),
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) List(_ context.Context, cursor uint64, limit int) (eventlog.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.records)
	}

	var window []eventlog.Record
	for _, r := range s.records {
		if r.Seq > cursor {
			window = append(window, r)
		}
	}
	hasMore := len(window) > limit
	if hasMore {
		window = window[:limit]
	}
	var next uint64
	if len(window) > 0 {
		next = window[len(window)-1].Seq
	} else {
		next = cursor
	}
	return eventlog.Page{Records: window, NextCursor: next, HasMore: hasMore}, nil
}

func (s *Store) Since(_ context.Context, correlation ids.CorrelationID) ([]eventlog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []eventlog.Record
	for _, r := range s.records {
		if r.Event.Correlation() == correlation {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Replay(ctx context.Context, fn func(eventlog.Record) error) error {
	s.mu.RLock()
	records := append([]eventlog.Record(nil), s.records...)
	s.mu.RUnlock()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stats(_ context.Context) (eventlog.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := eventlog.Stats{CountsByType: make(map[event.Type]uint64)}
	for _, r := range s.records {
		stats.TotalEvents++
		stats.CountsByType[r.Event.EventType()]++
		if stats.OldestAt.IsZero() || r.StoredAt.Before(stats.OldestAt) {
			stats.OldestAt = r.StoredAt
		}
		if r.StoredAt.After(stats.NewestAt) {
			stats.NewestAt = r.StoredAt
		}
	}
	return stats, nil
}
