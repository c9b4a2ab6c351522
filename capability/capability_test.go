package capability_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lion.run/lion/capability"
)

func TestFileCoversPrefixAndRights(t *testing.T) {
	t.Parallel()
	cap := capability.File{Paths: []string{"/data/"}, Rights: capability.RightRead | capability.RightWrite}

	require.True(t, cap.Covers(capability.FileAccess{Path: "/data/report.csv", Rights: capability.RightRead}))
	require.False(t, cap.Covers(capability.FileAccess{Path: "/etc/passwd", Rights: capability.RightRead}))
	require.False(t, cap.Covers(capability.FileAccess{Path: "/data/report.csv", Rights: capability.RightExecute}))
}

func TestFileCoversGlob(t *testing.T) {
	t.Parallel()
	cap := capability.File{Paths: []string{"/data/*.csv"}, Rights: capability.RightRead}
	require.True(t, cap.Covers(capability.FileAccess{Path: "/data/report.csv", Rights: capability.RightRead}))
	require.False(t, cap.Covers(capability.FileAccess{Path: "/data/report.json", Rights: capability.RightRead}))
}

func TestNetworkCoversHostPortDirection(t *testing.T) {
	t.Parallel()
	cap := capability.Network{
		HostPatterns: []string{"*.example.com"},
		Ports:        []int{443},
		Directions:   []capability.Direction{capability.DirectionConnect},
	}
	require.True(t, cap.Covers(capability.NetworkAccess{Host: "api.example.com", Port: 443, Direction: capability.DirectionConnect}))
	require.False(t, cap.Covers(capability.NetworkAccess{Host: "api.example.com", Port: 8080, Direction: capability.DirectionConnect}))
	require.False(t, cap.Covers(capability.NetworkAccess{Host: "api.example.com", Port: 443, Direction: capability.DirectionListen}))
	require.False(t, cap.Covers(capability.NetworkAccess{Host: "evil.com", Port: 443, Direction: capability.DirectionConnect}))
}

func TestMeetNeverWidensExtent(t *testing.T) {
	t.Parallel()
	broad := capability.File{Paths: []string{"/data/a", "/data/b"}, Rights: capability.RightRead | capability.RightWrite}
	narrow := capability.File{Paths: []string{"/data/a"}, Rights: capability.RightRead}

	met, ok := broad.Meet(narrow)
	require.True(t, ok)
	fc := met.(capability.File)
	require.Equal(t, []string{"/data/a"}, fc.Paths)
	require.Equal(t, capability.RightRead, fc.Rights)
}

func TestMeetDifferentKindsNotOK(t *testing.T) {
	t.Parallel()
	_, ok := capability.File{Paths: []string{"/a"}}.Meet(capability.Memory{MaxBytes: 10})
	require.False(t, ok)
}

func TestAttenuateIsMonotonic(t *testing.T) {
	t.Parallel()
	parent := capability.File{Paths: []string{"/data/a", "/data/b"}, Rights: capability.RightRead | capability.RightWrite}
	constraint := capability.File{Paths: []string{"/data/a"}, Rights: capability.RightRead}

	child := capability.Attenuate(parent, constraint)
	fc := child.(capability.File)
	require.Subset(t, parent.Paths, fc.Paths)
	require.True(t, parent.Rights.Contains(fc.Rights))
}

func TestAttenuateIncompatibleKindYieldsEmpty(t *testing.T) {
	t.Parallel()
	parent := capability.File{Paths: []string{"/data/a"}, Rights: capability.RightRead}
	result := capability.Attenuate(parent, capability.Memory{MaxBytes: 10})
	require.True(t, result.IsEmpty())
}

func TestRevokeIsIdempotent(t *testing.T) {
	t.Parallel()
	cap := capability.File{Paths: []string{"/data/a", "/data/b"}, Rights: capability.RightRead | capability.RightWrite}
	once := capability.Revoke(cap, capability.File{Paths: []string{"/data/a"}, Rights: capability.RightWrite})
	twice := capability.Revoke(once, capability.File{Paths: []string{"/data/a"}, Rights: capability.RightWrite})
	require.Equal(t, once, twice)
}
