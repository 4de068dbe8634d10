package main

import "runtime/debug"

// version is reported by --version, the MCP server and the run log.
// Release builds stamp it with -ldflags "-X main.version=v1.2.3"; a
// `go install` build reports its module version, and a build from a
// checkout reports the short commit, marked -dirty for uncommitted changes.
var version string

func init() {
	if version == "" {
		info, ok := debug.ReadBuildInfo()
		version = buildVersion(info, ok)
	}
}

func buildVersion(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	revision := settings["vcs.revision"]
	if revision == "" {
		return "dev"
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if settings["vcs.modified"] == "true" {
		revision += "-dirty"
	}
	return revision
}
