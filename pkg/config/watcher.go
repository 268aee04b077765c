package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the configuration file on change and calls reloadFn with
// each successfully loaded result. Invalid intermediate states are logged
// and skipped. Watching stops when the context is cancelled.
func Watch(ctx context.Context, path string, logger zerolog.Logger, reloadFn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go processEvents(ctx, watcher, path, logger, reloadFn)

	logger.Info().Str("path", path).Msg("watching config for changes")
	return nil
}

// processEvents debounces file events and triggers reloads.
func processEvents(ctx context.Context, watcher *fsnotify.Watcher, path string, logger zerolog.Logger, reloadFn func(*Config)) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("config file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(watchDebounce, func() {
				cfg, err := Load(path)
				if err != nil {
					logger.Warn().Err(err).Msg("ignoring invalid config change")
					return
				}
				logger.Info().Msg("config reloaded")
				reloadFn(cfg)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
