// Package version exposes the build identity codescope's binary was
// linked with: a semantic version plus the commit/date/toolchain that
// produced it.
package version

import (
	"fmt"
	"runtime"
)

// These are set via -X ldflags at link time; left at their zero values
// codescope still runs, just reporting itself as an unreleased dev build.
//
//	-X github.com/codescope/codescope/pkg/version.Version={{.Version}}
//	-X github.com/codescope/codescope/pkg/version.Commit={{.ShortCommit}}
//	-X github.com/codescope/codescope/pkg/version.Date={{.Date}}
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"

	// GoVersion is read at runtime rather than linked in, since it's a
	// property of the toolchain that built the binary, not a release artifact.
	GoVersion = runtime.Version()
)

// BuildInfo is the full build identity, structured for --json output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Info snapshots the package-level build variables into a BuildInfo.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String renders the one-line form `codescope version` prints by default.
func (b BuildInfo) String() string {
	return fmt.Sprintf("codescope %s (commit: %s, built: %s, go: %s)",
		b.Version, b.Commit, b.Date, b.GoVersion)
}

// String is the package-level equivalent of Info().String(), for callers
// that don't need the structured form.
func String() string {
	return Info().String()
}

// Short returns just the version number, for `codescope version --short`.
func Short() string {
	return Version
}
