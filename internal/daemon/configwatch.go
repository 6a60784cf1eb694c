package daemon

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfigFile watches the directory containing path and logs a
// restart-required notice whenever path itself is created, written, or
// renamed. Editors commonly replace a file via write-to-temp-then-rename
// rather than an in-place write, so the containing directory is watched
// rather than the file descriptor directly.
//
// The daemon's data stores are loaded once at startup and are never
// hot-reloaded from this watcher; it only surfaces that a restart would
// pick up the new configuration.
//
// WatchConfigFile returns immediately; the watch runs in a goroutine
// until ctx is canceled. A path of "" is a no-op (no archive-local
// config file was found to watch).
func WatchConfigFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return err
	}

	target := filepath.Clean(path)

	go func() {
		defer fsWatcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&fsnotify.Chmod != 0 {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					slog.Warn("configuration file changed, restart the daemon to apply it",
						slog.String("path", path))
				}
			case watchErr, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				slog.Debug("config watcher error", slog.String("error", watchErr.Error()))
			}
		}
	}()

	return nil
}
