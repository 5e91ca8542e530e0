package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionRaw string

// Version is the current version of consolectl, trimmed of whitespace.
var Version = strings.TrimSpace(versionRaw)

// Get returns the current version string.
func Get() string {
	return Version
}
