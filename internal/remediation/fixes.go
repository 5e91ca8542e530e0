package remediation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"m365console/internal/artifacts"
	"m365console/internal/common/logger"
	"m365console/internal/config"
	"m365console/internal/monitor"
)

// Fixer performs the idempotent repairs for failing checks.
type Fixer struct {
	Layout        monitor.Layout
	ReportSubdirs []string
	// Config is rendered as the known-good document when the config file
	// has to be rewritten.
	Config   *config.Config
	Artifact artifacts.Data
	Now      func() time.Time
	Log      *slog.Logger
}

const timestampFormat = "20060102-150405"

func (f *Fixer) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// FixTargeted runs the minimal fix for each failing check in report.
func (f *Fixer) FixTargeted(ctx context.Context, report monitor.FaultReport) []error {
	var errs []error
	for _, check := range report.Failures() {
		if ctx.Err() != nil {
			return append(errs, ctx.Err())
		}
		if err := f.Fix(check); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", check.Name, err))
		}
	}
	return errs
}

// Fix repairs one failing check.
func (f *Fixer) Fix(check monitor.FaultCheck) error {
	logger.LogInfo(f.Log, "Applying fix", "check", check.Name, "details", check.Details)

	switch check.Name {
	case monitor.CheckDirectoryStructure:
		return f.ensureDirs(check.Details)
	case monitor.CheckConfigFile:
		return f.rewriteConfig()
	case monitor.CheckDependencies:
		return f.fixDependencies(check.Details)
	case monitor.CheckLogWritable:
		return f.fixLogDir()
	case monitor.CheckReportStructure:
		return f.ensureReportDirs(check.Details)
	default:
		return fmt.Errorf("no fix available for check %q", check.Name)
	}
}

// FixAll runs every fix regardless of the last report. Each fix is
// idempotent, so running it on a healthy tree changes nothing except the
// config rewrite, which only happens when the file fails to load.
func (f *Fixer) FixAll(ctx context.Context) []error {
	var errs []error
	steps := []struct {
		name string
		run  func() error
	}{
		{monitor.CheckDirectoryStructure, func() error { return f.ensureDirs(monitor.RequiredDirs) }},
		{monitor.CheckConfigFile, f.repairConfigIfBroken},
		{monitor.CheckDependencies, func() error { _, err := f.RegenerateArtifacts(); return err }},
		{monitor.CheckLogWritable, f.fixLogDir},
		{monitor.CheckReportStructure, func() error { return f.ensureReportDirs(f.ReportSubdirs) }},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return append(errs, ctx.Err())
		}
		if err := step.run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errs
}

func (f *Fixer) ensureDirs(names []string) error {
	if len(names) == 0 {
		names = monitor.RequiredDirs
	}
	for _, name := range names {
		if err := os.MkdirAll(f.Layout.Dir(name), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fixer) ensureReportDirs(subdirs []string) error {
	if len(subdirs) == 0 {
		subdirs = f.ReportSubdirs
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(f.Layout.ReportDir(sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fixer) fixLogDir() error {
	dir := f.Layout.Dir(monitor.DirLogs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	return os.Chmod(dir, info.Mode().Perm()|0o700)
}

func (f *Fixer) fixDependencies(details []string) error {
	var unfixable []string
	for _, d := range details {
		switch {
		case strings.HasPrefix(d, "artifact:"):
			name := strings.TrimPrefix(d, "artifact:")
			a, ok := artifacts.Lookup(name)
			if !ok {
				unfixable = append(unfixable, d)
				continue
			}
			if err := f.writeArtifact(a); err != nil {
				return err
			}
		default:
			// Commands must be installed by an operator.
			unfixable = append(unfixable, d)
		}
	}
	if len(unfixable) > 0 {
		return fmt.Errorf("cannot repair automatically: %s", strings.Join(unfixable, ", "))
	}
	return nil
}

func (f *Fixer) writeArtifact(a artifacts.Artifact) error {
	dir := f.Layout.Dir(monitor.DirScripts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path, err := artifacts.Write(dir, a, f.artifactData())
	if err != nil {
		return err
	}
	logger.LogInfo(f.Log, "Regenerated artifact", "path", path)
	return nil
}

// RegenerateArtifacts rewrites every baseline artifact from its template.
func (f *Fixer) RegenerateArtifacts() ([]string, error) {
	var written []string
	for _, a := range artifacts.Baseline {
		if err := f.writeArtifact(a); err != nil {
			return written, err
		}
		written = append(written, a.Name)
	}
	return written, nil
}

func (f *Fixer) artifactData() artifacts.Data {
	d := f.Artifact
	if d.RootDir == "" {
		d.RootDir = f.Layout.Root
	}
	d.GeneratedAt = f.now()
	return d
}

func (f *Fixer) repairConfigIfBroken() error {
	data, err := os.ReadFile(f.Layout.ConfigFile())
	if err == nil {
		if doc, perr := config.Parse(data); perr == nil && config.Validate(doc) == nil {
			return nil
		}
	}
	return f.rewriteConfig()
}

// rewriteConfig backs up the current config file, if any, and writes the
// known-good document in its place.
func (f *Fixer) rewriteConfig() error {
	path := f.Layout.ConfigFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	backup, err := f.backupFile(path)
	if err != nil {
		return fmt.Errorf("backup before rewrite: %w", err)
	}
	if backup != "" {
		logger.LogInfo(f.Log, "Backed up config file", "backup", backup)
	}

	cfg := f.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	doc, err := config.Render(cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, doc, 0o600); err != nil {
		return err
	}
	logger.LogInfo(f.Log, "Rewrote config file from template", "path", path)
	return nil
}

// backupFile copies path to <path>.<timestamp>.bak. A missing file is not
// an error and yields an empty backup path.
func (f *Fixer) backupFile(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	base := fmt.Sprintf("%s.%s", path, f.now().Format(timestampFormat))
	dest := base + ".bak"
	for i := 1; fileExists(dest); i++ {
		dest = fmt.Sprintf("%s-%d.bak", base, i)
	}
	if err := copyFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
