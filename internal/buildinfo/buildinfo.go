// Package buildinfo holds the version stamp set at link time:
//
//	go build -ldflags "-X minikern/internal/buildinfo.Version=v0.3.0 -X minikern/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, or the commit for untagged builds.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String is the full stamp printed by -version.
func String() string {
	return fmt.Sprintf("minikern %s (commit %s, built %s)", Version, Commit, Date)
}
