package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time via -ldflags; Commit falls back to VCS build info.
var (
	Version = "dev"
	Commit  = ""
)

// Info is the resolved build version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get resolves the build version, preferring ldflags values and falling
// back to the module's embedded VCS metadata.
func Get() Info {
	info := Info{Version: Version, Commit: Commit}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.modified":
				info.Dirty = setting.Value == "true"
			}
		}
	}

	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// String returns a short version string such as "1.2.0-abc1234".
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// UserAgent returns the default User-Agent value for outgoing requests,
// such as "httpkit/1.2.0-abc1234".
func UserAgent() string {
	return fmt.Sprintf("httpkit/%s", Get())
}
