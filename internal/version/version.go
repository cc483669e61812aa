// Package version holds build metadata injected at link time, e.g.
//
//	go build -ldflags "-X git.home.luguber.info/inful/bookbuilder/internal/version.Version=v1.0.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
)

// String is the text printed by --version.
func String() string {
	if GitCommit == "unknown" || GitCommit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
