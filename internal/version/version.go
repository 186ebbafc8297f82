// Package version exposes build identification for the binaries and the
// web pages. Values are overridable at link time:
//
//	go build -ldflags "-X .../internal/version.version=v1.2.3"
package version

import "runtime/debug"

var (
	name    = "does-it-build"
	version = "dev"
	commit  = ""
)

func Name() string { return name }

func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return version
}

// Commit returns the VCS revision baked into the binary, or "unknown"
// when built outside a checkout.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}
