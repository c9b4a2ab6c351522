package kernel

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"lion.run/lion/capability"
)

// Manifest is the pre-parsed PluginManifest of spec §3: the external
// collaborator owns the concrete serialization (this kernel ships a YAML
// decoder since the rest of this tree already depends on gopkg.in/yaml.v3
// for config); the kernel itself only ever consumes this struct.
//
// DeclaredPermissions names are a small fixed vocabulary ("net", "fs:read",
// "fs:write", "fs:exec", "custom:<kind>") rather than full Capability
// literals: the manifest
// declares a ceiling of coarse-grained kinds, and loadCapabilities below
// turns each recognized name into a concrete, maximally-permissive
// capability.Capability of that kind. An unrecognized name is rejected at
// load time rather than silently ignored.
type Manifest struct {
	Name                string   `yaml:"name" json:"name"`
	Version             string   `yaml:"version" json:"version"`
	EntryPoint          string   `yaml:"entry_point" json:"entry_point"`
	DeclaredPermissions []string `yaml:"permissions" json:"permissions"`
}

// ParseManifest decodes raw as a YAML (a superset of JSON) Manifest.
func ParseManifest(raw []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("kernel: invalid manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("kernel: invalid manifest: name is required")
	}
	return m, nil
}

// loadCapabilities turns m's declared permission names into concrete
// capability grants, or reports the first unrecognized name.
func loadCapabilities(m Manifest) ([]capability.Capability, error) {
	caps := make([]capability.Capability, 0, len(m.DeclaredPermissions))
	for _, perm := range m.DeclaredPermissions {
		switch {
		case perm == "net":
			caps = append(caps, capability.Network{
				HostPatterns: []string{"*"},
				Ports:        nil,
				Directions:   []capability.Direction{capability.DirectionConnect, capability.DirectionListen},
			})
		case perm == "fs:read" || perm == "fs:write" || perm == "fs:exec":
			caps = append(caps, capability.File{Paths: []string{"**"}, Rights: fileRights(perm)})
		case strings.HasPrefix(perm, "custom:"):
			caps = append(caps, capability.Custom{CustomKind: strings.TrimPrefix(perm, "custom:")})
		default:
			return nil, fmt.Errorf("kernel: unrecognized permission %q", perm)
		}
	}
	return caps, nil
}

func fileRights(perm string) capability.Rights {
	switch perm {
	case "fs:write":
		return capability.RightRead | capability.RightWrite
	case "fs:exec":
		return capability.RightRead | capability.RightExecute
	default:
		return capability.RightRead
	}
}
