// Package version reports the psufhem build.
//
// Release builds stamp the version through ldflags:
//
//	go build -ldflags="-X github.com/muurk/psufhem/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/psufhem/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/psufhem
//
// Unstamped builds (go install, go run) derive both values from the VCS
// data embedded by the Go toolchain. The version is also sent to FHEM as
// the User-Agent of every command.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set via ldflags.
var (
	Version = ""
	Commit  = ""
)

const shortHashLen = 7

func init() {
	if Version != "" && Commit != "" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fromBuildSettings(info.Settings)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildSettings fills unset values from vcs.* build settings.
func fromBuildSettings(bs []debug.BuildSetting) {
	vcs := make(map[string]string, len(bs))
	for _, s := range bs {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortHashLen {
			rev = rev[:shortHashLen]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	// No tags in build info; date the dev build by its commit
	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit, e.g. "v0.3.0 (commit: 1a2b3c4)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every request to FHEM.
func UserAgent() string {
	return "psufhem/" + Version
}
