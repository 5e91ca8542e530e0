package monitor

import (
	"path/filepath"

	"m365console/internal/config"
)

// Directories every installation must have under its root.
const (
	DirConfig    = "config"
	DirScripts   = "scripts"
	DirTemplates = "templates"
	DirLogs      = "logs"
	DirReports   = "reports"
	DirState     = "state"
	DirBackups   = "backups"
)

// RequiredDirs is the directory structure checked by directory-structure.
var RequiredDirs = []string{DirConfig, DirScripts, DirTemplates, DirLogs, DirReports, DirState, DirBackups}

// Layout resolves paths inside a console installation.
type Layout struct {
	Root string
	// ConfigPath overrides <Root>/config/console.yaml.
	ConfigPath string
}

func (l Layout) Dir(name string) string {
	return filepath.Join(l.Root, name)
}

func (l Layout) ConfigFile() string {
	if l.ConfigPath != "" {
		return l.ConfigPath
	}
	return config.DefaultConfigPath(l.Root)
}

func (l Layout) Script(name string) string {
	return filepath.Join(l.Root, DirScripts, name)
}

func (l Layout) ReportDir(sub string) string {
	return filepath.Join(l.Root, DirReports, sub)
}
