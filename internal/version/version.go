// Package version reports the build of the dashboard-e2e binary. The
// variables are set with -ldflags "-X .../internal/version.Version=v1.2.0".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build description printed by the version command.
type Info struct {
	Version    string `json:"version" yaml:"version"`
	GitCommit  string `json:"git_commit" yaml:"git_commit"`
	BuildDate  string `json:"build_date" yaml:"build_date"`
	GoVersion  string `json:"go_version" yaml:"go_version"`
	Playwright string `json:"playwright" yaml:"playwright"`
}

// GetInfo returns the current build info. The playwright-go version comes
// from the module build list.
func GetInfo() Info {
	info := Info{
		Version:    Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Playwright: "unknown",
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path == "github.com/playwright-community/playwright-go" {
				info.Playwright = dep.Version
			}
		}
	}
	return info
}

// Short returns just the version.
func Short() string {
	return Version
}

// String returns "v1.2.0 (abc1234)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}

// UserAgent identifies API calls made by the suite.
func UserAgent() string {
	return "dashboard-e2e/" + Version
}
