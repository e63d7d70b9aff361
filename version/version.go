// Package version reports which build of streamd is running.
package version

import (
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags "-X github.com/kbukum/streamkit/version.Version=1.2.0".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the linker-provided values, completed from the VCS stamp Go
// embeds in module builds.
func Get() Build {
	b := Build{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	return fromBuildInfo(b, info)
}

func fromBuildInfo(b Build, info *debug.BuildInfo) Build {
	b.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.GitCommit == "" {
				b.GitCommit = s.Value
			}
		case "vcs.time":
			if b.BuildTime == "" {
				b.BuildTime = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	if len(b.GitCommit) > 7 {
		b.GitCommit = b.GitCommit[:7]
	}
	return b
}

// Short renders the build as "1.2.0-abc1234" (with "-dirty" for modified
// trees), or just the version when no commit is known.
func (b Build) Short() string {
	parts := []string{b.Version}
	if b.GitCommit != "" {
		parts = append(parts, b.GitCommit)
	}
	if b.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}
