// Package capability implements the bounded-authority object model of §3 and
// the Capability Gate (C3) of §4.3: Capability variants, the covers/meet/
// attenuate/revoke algebra, and a per-plugin capability store.
//
// Capability variants are modeled the Android-permission way the source
// sandbox design uses (deny-by-default, explicit grant per resource kind),
// generalized from flat capability strings into the typed File/Network/
// Memory/Custom union spec.md requires.
package capability

import (
	"path"
	"strings"
)

// Kind discriminates Capability/AccessRequest variants.
type Kind string

const (
	KindFile    Kind = "file"
	KindNetwork Kind = "network"
	KindMemory  Kind = "memory"
	KindCustom  Kind = "custom"
)

// Rights is a bitmask of file access rights.
type Rights uint8

const (
	RightRead Rights = 1 << iota
	RightWrite
	RightExecute
)

// Contains reports whether r holds every right set in other.
func (r Rights) Contains(other Rights) bool { return r&other == other }

// Direction discriminates network connection direction.
type Direction string

const (
	DirectionConnect Direction = "connect"
	DirectionListen  Direction = "listen"
)

type (
	// Capability is a bounded authority object (§3). Extent is the set of
	// concrete actions the capability authorizes; Covers, Meet and IsEmpty
	// operate purely on that extent and never mutate the receiver —
	// Capability values are immutable, matching the lifecycle rule that
	// attenuation only ever produces new, narrower capabilities (I3).
	Capability interface {
		Kind() Kind
		// Covers reports whether req is within this capability's extent.
		Covers(req AccessRequest) bool
		// Meet returns the intersection of this capability with other. ok is
		// false when the two capabilities are different kinds (their meet is
		// undefined, not merely empty).
		Meet(other Capability) (result Capability, ok bool)
		// IsEmpty reports whether the capability's extent authorizes nothing.
		IsEmpty() bool
	}

	// AccessRequest mirrors Capability's variants but describes one concrete
	// attempted action rather than a bounded grant.
	AccessRequest interface {
		Kind() Kind
	}

	// File grants rights over a set of path patterns (glob/prefix semantics,
	// per the owning PluginManifest).
	File struct {
		Paths  []string
		Rights Rights
	}

	// FileAccess describes one attempted file operation.
	FileAccess struct {
		Path   string
		Rights Rights
	}

	// Network grants connect/listen authority over a set of host patterns and
	// ports.
	Network struct {
		HostPatterns []string
		Ports        []int
		Directions   []Direction
	}

	// NetworkAccess describes one attempted network operation.
	NetworkAccess struct {
		Host      string
		Port      int
		Direction Direction
	}

	// Memory bounds the total memory an execution may allocate.
	Memory struct {
		MaxBytes uint64
	}

	// MemoryAccess describes an attempted allocation.
	MemoryAccess struct {
		Bytes uint64
	}

	// Custom is an extension point for capability kinds this package does
	// not model natively. A Custom covers a request with the same
	// CustomKind whose every param equals the capability's value for that
	// key.
	Custom struct {
		CustomKind string
		Params     map[string]string
	}

	// CustomAccess describes an attempted custom-capability action.
	CustomAccess struct {
		CustomKind string
		Params     map[string]string
	}
)

func (File) Kind() Kind          { return KindFile }
func (FileAccess) Kind() Kind    { return KindFile }
func (Network) Kind() Kind       { return KindNetwork }
func (NetworkAccess) Kind() Kind { return KindNetwork }
func (Memory) Kind() Kind        { return KindMemory }
func (MemoryAccess) Kind() Kind  { return KindMemory }
func (Custom) Kind() Kind        { return KindCustom }
func (CustomAccess) Kind() Kind  { return KindCustom }

// Covers — File.

func (f File) Covers(req AccessRequest) bool {
	fa, ok := req.(FileAccess)
	if !ok {
		return false
	}
	if !f.Rights.Contains(fa.Rights) {
		return false
	}
	for _, pattern := range f.Paths {
		if matchPath(pattern, fa.Path) {
			return true
		}
	}
	return false
}

func (f File) IsEmpty() bool { return len(f.Paths) == 0 || f.Rights == 0 }

func (f File) Meet(other Capability) (Capability, bool) {
	o, ok := other.(File)
	if !ok {
		return nil, false
	}
	return File{Paths: intersectPaths(f.Paths, o.Paths), Rights: f.Rights & o.Rights}, true
}

// matchPath reports whether candidate is contained in pattern, using glob
// semantics for patterns containing "*" and prefix semantics for directory
// patterns ending in "/".
func matchPath(pattern, candidate string) bool {
	if pattern == candidate {
		return true
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(candidate, pattern)
	}
	if strings.Contains(pattern, "*") {
		ok, err := path.Match(pattern, candidate)
		return err == nil && ok
	}
	return false
}

// intersectPaths returns the patterns common to both sets (a conservative,
// sound approximation of set intersection for glob patterns: exact
// string-level agreement, since determining general glob-to-glob overlap is
// not decidable in the general case). Any pattern present in both inputs
// survives; the meet never grows the original extent.
func intersectPaths(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, p := range b {
		set[p] = struct{}{}
	}
	var out []string
	for _, p := range a {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Covers — Network.

func (n Network) Covers(req AccessRequest) bool {
	na, ok := req.(NetworkAccess)
	if !ok {
		return false
	}
	if !containsDirection(n.Directions, na.Direction) {
		return false
	}
	if !containsPort(n.Ports, na.Port) {
		return false
	}
	for _, pattern := range n.HostPatterns {
		if matchHost(pattern, na.Host) {
			return true
		}
	}
	return false
}

func (n Network) IsEmpty() bool {
	return len(n.HostPatterns) == 0 || len(n.Ports) == 0 || len(n.Directions) == 0
}

func (n Network) Meet(other Capability) (Capability, bool) {
	o, ok := other.(Network)
	if !ok {
		return nil, false
	}
	return Network{
		HostPatterns: intersectPaths(n.HostPatterns, o.HostPatterns),
		Ports:        intersectPorts(n.Ports, o.Ports),
		Directions:   intersectDirections(n.Directions, o.Directions),
	}, true
}

func matchHost(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	ok, err := path.Match(pattern, host)
	return err == nil && ok
}

func containsDirection(ds []Direction, d Direction) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

func containsPort(ports []int, p int) bool {
	for _, x := range ports {
		if x == p {
			return true
		}
	}
	return false
}

func intersectPorts(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, p := range b {
		set[p] = struct{}{}
	}
	var out []int
	for _, p := range a {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func intersectDirections(a, b []Direction) []Direction {
	set := make(map[Direction]struct{}, len(b))
	for _, d := range b {
		set[d] = struct{}{}
	}
	var out []Direction
	for _, d := range a {
		if _, ok := set[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Covers — Memory.

func (m Memory) Covers(req AccessRequest) bool {
	ma, ok := req.(MemoryAccess)
	if !ok {
		return false
	}
	return ma.Bytes <= m.MaxBytes
}

func (m Memory) IsEmpty() bool { return m.MaxBytes == 0 }

func (m Memory) Meet(other Capability) (Capability, bool) {
	o, ok := other.(Memory)
	if !ok {
		return nil, false
	}
	max := m.MaxBytes
	if o.MaxBytes < max {
		max = o.MaxBytes
	}
	return Memory{MaxBytes: max}, true
}

// Covers — Custom.

func (c Custom) Covers(req AccessRequest) bool {
	ca, ok := req.(CustomAccess)
	if !ok || ca.CustomKind != c.CustomKind {
		return false
	}
	for k, v := range ca.Params {
		if c.Params[k] != v {
			return false
		}
	}
	return true
}

func (c Custom) IsEmpty() bool { return c.CustomKind == "" }

func (c Custom) Meet(other Capability) (Capability, bool) {
	o, ok := other.(Custom)
	if !ok || o.CustomKind != c.CustomKind {
		return nil, false
	}
	merged := make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		if o.Params[k] == v {
			merged[k] = v
		}
	}
	return Custom{CustomKind: c.CustomKind, Params: merged}, true
}

// Attenuate narrows cap to the intersection of cap and constraints.
// Constraints that would widen cap's extent are discarded by Meet's
// intersection semantics; constraints of a different Kind than cap yield an
// empty-extent capability of cap's own kind (a Deny-equivalent result),
// matching §4.3: "the operation is total".
func Attenuate(cap Capability, constraints Capability) Capability {
	if narrowed, ok := cap.Meet(constraints); ok {
		return narrowed
	}
	return emptyOf(cap)
}

// Revoke removes subset's extent from cap's extent. Revocation only removes
// authority a capability already had from the matching-kind part of subset;
// partial revocation of a File/Network path/port set is modeled by removing
// exactly the patterns/ports named in subset (monotonic, idempotent:
// revoking the same subset twice yields the same result as revoking it once).
func Revoke(cap Capability, subset Capability) Capability {
	switch c := cap.(type) {
	case File:
		s, ok := subset.(File)
		if !ok {
			return c
		}
		return File{Paths: difference(c.Paths, s.Paths), Rights: c.Rights &^ s.Rights}
	case Network:
		s, ok := subset.(Network)
		if !ok {
			return c
		}
		return Network{
			HostPatterns: difference(c.HostPatterns, s.HostPatterns),
			Ports:        differenceInts(c.Ports, s.Ports),
			Directions:   c.Directions,
		}
	case Memory:
		s, ok := subset.(Memory)
		if !ok {
			return c
		}
		if s.MaxBytes >= c.MaxBytes {
			return Memory{MaxBytes: 0}
		}
		return Memory{MaxBytes: c.MaxBytes - s.MaxBytes}
	case Custom:
		return c
	default:
		return cap
	}
}

func emptyOf(cap Capability) Capability {
	switch cap.(type) {
	case File:
		return File{}
	case Network:
		return Network{}
	case Memory:
		return Memory{}
	default:
		return Custom{}
	}
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	var out []string
	for _, x := range a {
		if _, excluded := set[x]; !excluded {
			out = append(out, x)
		}
	}
	return out
}

func differenceInts(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	var out []int
	for _, x := range a {
		if _, excluded := set[x]; !excluded {
			out = append(out, x)
		}
	}
	return out
}
