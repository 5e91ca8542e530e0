package remediation

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"m365console/internal/common/logger"
	"m365console/internal/monitor"
)

// BackupTree copies config/ and scripts/ into backups/<timestamp>/ and
// returns the backup directory. Missing source directories are skipped.
func (f *Fixer) BackupTree() (string, error) {
	backups := f.Layout.Dir(monitor.DirBackups)
	if err := os.MkdirAll(backups, 0o755); err != nil {
		return "", err
	}

	stamp := f.now().Format(timestampFormat)
	dest := filepath.Join(backups, stamp)
	for i := 1; fileExists(dest); i++ {
		dest = filepath.Join(backups, fmt.Sprintf("%s-%d", stamp, i))
	}
	if err := os.Mkdir(dest, 0o755); err != nil {
		return "", err
	}

	for _, name := range []string{monitor.DirConfig, monitor.DirScripts} {
		src := f.Layout.Dir(name)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := copyTree(src, filepath.Join(dest, name)); err != nil {
			return dest, fmt.Errorf("backup %s: %w", name, err)
		}
	}
	// A custom config path outside config/ is backed up alongside.
	if cfg := f.Layout.ConfigFile(); !within(f.Layout.Dir(monitor.DirConfig), cfg) && fileExists(cfg) {
		if err := copyFile(cfg, filepath.Join(dest, filepath.Base(cfg))); err != nil {
			return dest, fmt.Errorf("backup %s: %w", cfg, err)
		}
	}

	logger.LogInfo(f.Log, "Created full backup", "path", dest)
	return dest, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !filepath.IsAbs(rel) && (len(rel) < 3 || rel[:3] != ".."+string(filepath.Separator))
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
