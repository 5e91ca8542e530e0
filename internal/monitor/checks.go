package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"m365console/internal/config"
)

// Check is one read-only probe. Run returns nil when the check passes, or
// an error plus the individual problems it found.
type Check struct {
	Name string
	Run  func(ctx context.Context) (details []string, err error)
}

func (m *Monitor) defaultChecks() []Check {
	return []Check{
		{Name: CheckDirectoryStructure, Run: m.checkDirectories},
		{Name: CheckConfigFile, Run: m.checkConfigFile},
		{Name: CheckDependencies, Run: m.checkDependencies},
		{Name: CheckLogWritable, Run: m.checkLogWritable},
		{Name: CheckReportStructure, Run: m.checkReportStructure},
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (m *Monitor) checkDirectories(context.Context) ([]string, error) {
	var missing []string
	for _, d := range RequiredDirs {
		if !isDir(m.layout.Dir(d)) {
			missing = append(missing, d)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("missing directories: %s", strings.Join(missing, ", "))
	}
	return nil, nil
}

func (m *Monitor) checkConfigFile(context.Context) ([]string, error) {
	path := m.layout.ConfigFile()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{"missing"}, fmt.Errorf("config file %s not found", path)
		}
		return []string{"unreadable"}, fmt.Errorf("config file %s unreadable: %w", path, err)
	}

	doc, err := config.Parse(data)
	if err != nil {
		return []string{"malformed"}, err
	}
	if err := config.Validate(doc); err != nil {
		return []string{"invalid"}, err
	}
	return nil, nil
}

func (m *Monitor) checkDependencies(context.Context) ([]string, error) {
	var missing []string
	for _, cmd := range m.opts.RequiredCommands {
		if _, err := m.lookPath(cmd); err != nil {
			missing = append(missing, "command:"+cmd)
		}
	}
	for _, name := range m.opts.Artifacts {
		info, err := os.Stat(m.layout.Script(name))
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			missing = append(missing, "artifact:"+name)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil, nil
}

func (m *Monitor) checkLogWritable(context.Context) ([]string, error) {
	dir := m.layout.Dir(DirLogs)
	if !isDir(dir) {
		return []string{"missing"}, fmt.Errorf("log directory %s does not exist", dir)
	}
	if err := writable(dir); err != nil {
		return []string{"not-writable"}, fmt.Errorf("log directory %s is not writable: %w", dir, err)
	}
	return nil, nil
}

func (m *Monitor) checkReportStructure(context.Context) ([]string, error) {
	var missing []string
	for _, sub := range m.opts.ReportSubdirs {
		if !isDir(m.layout.ReportDir(sub)) {
			missing = append(missing, sub)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("missing report directories: %s", strings.Join(missing, ", "))
	}
	return nil, nil
}
