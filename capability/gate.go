package capability

import (
	"context"
	"sync"

	"lion.run/lion/errkind"
	"lion.run/lion/ids"
)

type (
	// Store owns the authoritative set of capabilities held by each plugin.
	// The in-memory store serializes every grant, revocation and read, for
	// all plugins, behind one mutex (§5 Shared resources).
	Store interface {
		Grant(ctx context.Context, plugin ids.PluginID, cap Capability) error
		Revoke(ctx context.Context, plugin ids.PluginID, subset Capability) error
		Held(ctx context.Context, plugin ids.PluginID) ([]Capability, bool)
		Drop(ctx context.Context, plugin ids.PluginID)
	}

	// Gate is the Capability Gate (C3): it decides whether an access request
	// is covered by a plugin's held capabilities.
	Gate struct {
		store Store
	}
)

// NewGate constructs a Gate backed by store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Check implements §4.3: allowed iff at least one held capability covers
// req. A missing capability set for a known plugin is a programming bug and
// is reported as a KindKernelBug error rather than silently denying; an
// unmatched request with a capability set present is a normal Deny, never a
// panic.
func (g *Gate) Check(ctx context.Context, plugin ids.PluginID, req AccessRequest) (bool, *errkind.Error) {
	held, ok := g.store.Held(ctx, plugin)
	if !ok {
		return false, errkind.New(errkind.KindKernelBug, "capability set missing for known plugin "+plugin.String())
	}
	for _, cap := range held {
		if cap.Kind() == req.Kind() && cap.Covers(req) {
			return true, nil
		}
	}
	return false, errkind.New(errkind.KindCapabilityDenied, "no held capability covers the requested "+string(req.Kind())+" access")
}

// Attenuate narrows every capability of the same kind as constraints held by
// plugin, replacing them with their intersection with constraints, and
// returns the narrowed set. It never widens extent (I3/P3).
func (g *Gate) Attenuate(ctx context.Context, plugin ids.PluginID, constraints Capability) ([]Capability, error) {
	held, ok := g.store.Held(ctx, plugin)
	if !ok {
		return nil, errkind.New(errkind.KindKernelBug, "capability set missing for known plugin "+plugin.String())
	}
	out := make([]Capability, 0, len(held))
	for _, cap := range held {
		if cap.Kind() != constraints.Kind() {
			out = append(out, cap)
			continue
		}
		narrowed := Attenuate(cap, constraints)
		if err := g.store.Revoke(ctx, plugin, cap); err != nil {
			return nil, err
		}
		if !narrowed.IsEmpty() {
			if err := g.store.Grant(ctx, plugin, narrowed); err != nil {
				return nil, err
			}
			out = append(out, narrowed)
		}
	}
	return out, nil
}

// memStore is the in-memory capability store. It is the default (and only
// shipped) Store implementation: the source repository's capability store is
// itself a long-lived singleton scoped to a runtime instance, never a
// process-wide global (§9 Design Notes).
type memStore struct {
	mu   sync.Mutex
	caps map[ids.PluginID][]Capability
}

// NewMemStore returns an in-memory capability Store.
func NewMemStore() Store {
	return &memStore{caps: make(map[ids.PluginID][]Capability)}
}

func (s *memStore) Grant(_ context.Context, plugin ids.PluginID, cap Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caps[plugin]; !ok {
		s.caps[plugin] = nil
	}
	s.caps[plugin] = append(s.caps[plugin], cap)
	return nil
}

func (s *memStore) Revoke(_ context.Context, plugin ids.PluginID, subset Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	held, ok := s.caps[plugin]
	if !ok {
		return nil
	}
	out := make([]Capability, 0, len(held))
	for _, cap := range held {
		if cap.Kind() != subset.Kind() {
			out = append(out, cap)
			continue
		}
		narrowed := Revoke(cap, subset)
		if !narrowed.IsEmpty() {
			out = append(out, narrowed)
		}
	}
	s.caps[plugin] = out
	return nil
}

func (s *memStore) Held(_ context.Context, plugin ids.PluginID) ([]Capability, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held, ok := s.caps[plugin]
	if !ok {
		return nil, false
	}
	out := make([]Capability, len(held))
	copy(out, held)
	return out, true
}

func (s *memStore) Drop(_ context.Context, plugin ids.PluginID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caps, plugin)
}
