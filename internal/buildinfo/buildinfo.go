// Package buildinfo holds release metadata stamped in with -ldflags "-X".
package buildinfo

import "fmt"

// Defaults apply to `go build` without ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Summary is the long form printed by --version.
func Summary() string {
	if GitCommit == "unknown" && BuildDate == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
