package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFiles calls onChange after changes to any of targets settle for
// debounce, until ctx is done.
//
// A file target is watched through its parent directory so that editors
// replacing the file (write to temp, rename) are still seen. A directory
// target is watched recursively; hidden directories are skipped. Empty
// targets are ignored.
func WatchFiles(ctx context.Context, targets []string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	files := make(map[string]bool)
	var dirs []string
	for _, t := range targets {
		if t == "" {
			continue
		}
		abs, err := filepath.Abs(t)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := addWatchesRecursive(fsw, abs, logger); err != nil {
				return err
			}
			dirs = append(dirs, abs)
			continue
		}
		if err := fsw.Add(filepath.Dir(abs)); err != nil {
			return err
		}
		files[abs] = true
	}

	relevant := func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		if files[abs] {
			return true
		}
		for _, d := range dirs {
			if strings.HasPrefix(abs, d+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	logger.Info("watching for changes", "targets", len(files)+len(dirs), "debounce", debounce)

	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && relevant(event.Name) {
					if err := addWatchesRecursive(fsw, event.Name, logger); err != nil {
						logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if event.Op == fsnotify.Chmod || !relevant(event.Name) {
				continue
			}
			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if pending {
				pending = false
				onChange()
			}
		}
	}
}

// addWatchesRecursive adds watches to root and every non-hidden directory
// below it.
func addWatchesRecursive(fsw *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return err
		}
		logger.Debug("watching directory", "path", path)
		return nil
	})
}
