package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// #region watch
// Watch reloads path whenever it changes and hands every valid result to
// apply. Invalid edits are logged and skipped. The parent directory is
// watched so rename-on-save editors are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, apply func(Config)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching config", "path", abs)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("config reload rejected", "path", abs, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", abs)
			apply(cfg)
		}
	}
}

// #endregion watch
