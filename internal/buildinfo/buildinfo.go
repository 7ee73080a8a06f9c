// Package buildinfo exposes build-time metadata. Version and BuildDate are
// injected with -ldflags "-X github.com/tphakala/contractwatch/internal/buildinfo.Version=...".
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Set at link time
var (
	Version   = ""
	BuildDate = ""
)

// Info is the build metadata reported by the version command and the
// health endpoint
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"goVersion"`
}

// Current returns the build metadata. Missing link-time values fall back to
// the module version and VCS stamp recorded by the Go toolchain.
func Current() Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = shortCommit(s.Value)
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// String formats the metadata on one line
func (i Info) String() string {
	s := "contractwatch " + i.Version
	if i.Commit != "" {
		s += " (" + i.Commit + ")"
	}
	return s + " built " + i.BuildDate + " with " + i.GoVersion
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
