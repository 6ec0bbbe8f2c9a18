package version

import "fmt"

const (
	// Major represents the current major version of the engine.
	Major = 0
	// Minor represents the current minor version of the engine.
	Minor = 1
	// Patch represents the current patch version of the engine.
	Patch = 0
)

// Semantic is the full semantic version string for the engine.
var Semantic string

// DebugEnabled controls whether or not debug-level log output is emitted. It
// is a package-level variable (rather than a per-logger setting) so that it
// can be toggled globally by the command line entry point.
var DebugEnabled bool

func init() {
	Semantic = fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}
