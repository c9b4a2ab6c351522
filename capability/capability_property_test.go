package capability_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"lion.run/lion/capability"
)

var fixedPaths = []string{"/data/a", "/data/b", "/data/c", "/etc/passwd"}

func fileGen() gopter.Gen {
	return gen.SliceOfN(2, gen.OneConstOf(
		fixedPaths[0], fixedPaths[1], fixedPaths[2], fixedPaths[3],
	)).Map(func(paths []string) capability.File {
		return capability.File{Paths: paths, Rights: capability.RightRead | capability.RightWrite}
	})
}

// TestAttenuationExtentNeverGrowsProperty validates P3: for every capability
// c' derived from c by attenuation, extent(c') is a subset of extent(c).
func TestAttenuationExtentNeverGrowsProperty(t *testing.T) {
	t.Parallel()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("attenuated file capability's path set is a subset of the parent's", prop.ForAll(
		func(parent, constraint capability.File) bool {
			attenuated := capability.Attenuate(parent, constraint).(capability.File)
			parentSet := toSet(parent.Paths)
			for _, p := range attenuated.Paths {
				if _, ok := parentSet[p]; !ok {
					return false
				}
			}
			return parent.Rights.Contains(attenuated.Rights)
		},
		fileGen(), fileGen(),
	))

	properties.TestingRun(t)
}

// TestMeetIsCommutativeProperty validates that meeting two capabilities
// produces the same extent regardless of argument order.
func TestMeetIsCommutativeProperty(t *testing.T) {
	t.Parallel()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("meet is commutative", prop.ForAll(
		func(a, b capability.File) bool {
			ab, ok1 := a.Meet(b)
			ba, ok2 := b.Meet(a)
			if ok1 != ok2 {
				return false
			}
			return fmt.Sprint(ab) == fmt.Sprint(ba) || equalFileSets(ab.(capability.File), ba.(capability.File))
		},
		fileGen(), fileGen(),
	))

	properties.TestingRun(t)
}

// TestMeetIsAssociativeProperty validates that a sequence of attenuations
// (via repeated Meet) is associative in its effect on extent.
func TestMeetIsAssociativeProperty(t *testing.T) {
	t.Parallel()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("meet is associative", prop.ForAll(
		func(a, b, c capability.File) bool {
			ab, _ := a.Meet(b)
			left, _ := ab.Meet(c)

			bc, _ := b.Meet(c)
			right, _ := a.Meet(bc)

			return equalFileSets(left.(capability.File), right.(capability.File))
		},
		fileGen(), fileGen(), fileGen(),
	))

	properties.TestingRun(t)
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func equalFileSets(a, b capability.File) bool {
	if a.Rights != b.Rights {
		return false
	}
	as, bs := toSet(a.Paths), toSet(b.Paths)
	if len(as) != len(bs) {
		return false
	}
	for p := range as {
		if _, ok := bs[p]; !ok {
			return false
		}
	}
	return true
}
