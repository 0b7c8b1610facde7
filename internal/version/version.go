package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionFile string

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App returns the current version of pgmodeldiff
func App() string {
	return strings.TrimSpace(versionFile)
}

// Platform returns the OS/architecture combination
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// String renders the full version line printed by the CLI.
func String() string {
	return "pgmodeldiff v" + App() + "@" + GitCommit + " " + Platform() + " " + BuildDate
}

// ReportFormat returns the version of the JSON report format
func ReportFormat() string {
	return "1.0.0"
}
