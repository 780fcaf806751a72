// Package buildinfo reports which typoscan build is running.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the module version for tagged installs, "dev-<rev>[-dirty]"
// for builds from a checkout, "dev" without VCS data, or "unknown".
func Version() string {
	info, ok := readBuildInfo()
	if !ok {
		return "unknown"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return devVersion(info.Settings)
}

func devVersion(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "dev"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	v := "dev-" + rev
	if dirty {
		v += "-dirty"
	}
	return v
}

// UserAgent is sent with every request to a package index or GitHub, e.g.
// "typoscan/v0.2.0 (linux/amd64)". PyPI asks bulk clients to identify themselves.
func UserAgent() string {
	var sb strings.Builder
	sb.WriteString("typoscan/")
	sb.WriteString(Version())
	sb.WriteString(" (")
	sb.WriteString(runtime.GOOS)
	sb.WriteString("/")
	sb.WriteString(runtime.GOARCH)
	sb.WriteString(")")
	return sb.String()
}
