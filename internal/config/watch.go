package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it is written or replaced
// and hands each valid result to apply. Invalid edits are logged and skipped.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, apply func(Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often save by renaming a temp file over the target, which drops
	// a watch on the file itself, so watch the directory instead.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(absPath)
			if err != nil {
				slog.Warn("config reload rejected", "path", absPath, "err", err)
				continue
			}
			// Editors that truncate before writing emit an event for the
			// empty file; the follow-up write carries the content.
			if len(bytes.TrimSpace(data)) == 0 {
				slog.Debug("ignoring empty config file", "path", absPath)
				continue
			}
			cfg, err := parse(absPath, data)
			if err != nil {
				slog.Warn("config reload rejected", "path", absPath, "err", err)
				continue
			}
			slog.Info("config reloaded", "path", absPath)
			apply(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "err", err)
		}
	}
}
