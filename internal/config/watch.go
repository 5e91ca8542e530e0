package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"m365console/internal/common/logger"
)

// Watch calls onChange whenever path is written, created, renamed or
// removed. The parent directory is watched so atomic saves and repairs that
// replace the file are still seen. It runs until ctx is cancelled.
func Watch(ctx context.Context, path string, log *slog.Logger, onChange func(fsnotify.Event)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	logger.LogDebug(log, "Watching config for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.LogInfo(log, "Config file changed", "path", path, "op", event.Op.String())
			onChange(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.LogWarn(log, "Config watcher error", "error", err)
		}
	}
}
