// Package version holds the build identity of the gitshare binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "<unknown>"

// Version is the release of the binary, set with
// -ldflags "-X github.com/Sumatoshi-tech/gitshare/pkg/version.Version=v1.2.3".
var Version = "dev"

// Commit is the Git hash the binary was built from.
var Commit = unknown

// Date is the build time.
var Date = unknown

// InitBinaryVersion fills Commit and Date from the embedded VCS build
// settings when they were not set by the linker.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String renders the version line printed by "gitshare version".
func String() string {
	return fmt.Sprintf("gitshare %s (commit: %s, built: %s)", Version, Commit, Date)
}
