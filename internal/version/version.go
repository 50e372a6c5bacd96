// Package version provides build-time information for the CLI application.
// Version is read from the VERSION file or set via ldflags during build.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

// version can be overridden via ldflags:
// -X github.com/tacogips/remotetheme/internal/version.version=x.y.z
var version string

// Build metadata set via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Version returns the application version.
// Priority: ldflags > embedded VERSION file
func Version() string {
	if version != "" {
		return version
	}
	if v := strings.TrimSpace(embeddedVersion); v != "" {
		return v
	}
	return "dev"
}
