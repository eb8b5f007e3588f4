// Package preset classifies named build-configuration profiles and decides
// compiler-injection policy for each.
package preset

import "os"

// Category describes a profile's compiler-injection policy.
type Category string

const (
	// EnvironmentDependent profiles take whatever toolchain the ambient
	// environment selected (CI compiler rotation, distro defaults).
	EnvironmentDependent Category = "environment-dependent"
	// CompilerSpecific profiles exist to pin one toolchain and must never be
	// overridden by ambient selection.
	CompilerSpecific Category = "compiler-specific"
)

// Compilers is a resolved C / C++ compiler pair.
type Compilers struct {
	CC  string
	CXX string
}

// bothSet reports whether the pair is fully specified. Resolution never mixes
// one ambient compiler with one pinned compiler.
func (c Compilers) bothSet() bool { return c.CC != "" && c.CXX != "" }

// Classify maps a profile name to its category. The literal names "debug" and
// "release" are environment-dependent; every other identifier (release-clang++,
// release-icpx, anything unknown) is compiler-specific, i.e. preserved as-is.
// Classification is total and deterministic.
func Classify(name string) Category {
	switch name {
	case "debug", "release":
		return EnvironmentDependent
	}
	return CompilerSpecific
}

// Resolve returns the compiler pair a profile should use. Environment-dependent
// profiles adopt the ambient pair only when both ambient compilers are set;
// compiler-specific profiles always keep their pinned pair.
func Resolve(cat Category, pinned, ambient Compilers) Compilers {
	if cat == EnvironmentDependent && ambient.bothSet() {
		return ambient
	}
	return pinned
}

// ResolveFor is the common path: classify by name, then resolve.
func ResolveFor(profileName string, pinned, ambient Compilers) Compilers {
	return Resolve(Classify(profileName), pinned, ambient)
}

// AmbientFromEnv reads the conventional CC / CXX selection from the process
// environment.
func AmbientFromEnv() Compilers {
	return Compilers{CC: os.Getenv("CC"), CXX: os.Getenv("CXX")}
}
