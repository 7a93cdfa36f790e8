package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/albumen/internal/storage"
)

const reloadDelay = 200 * time.Millisecond

// ReloadCallback is called after a watcher-driven reload published a new
// snapshot.
type ReloadCallback func(c *Catalog)

// Watch starts an fsnotify watcher on the directory holding the catalog
// file and reloads it until ctx is cancelled. Events are debounced; a
// reload whose checksum matches the current snapshot is skipped, and a
// reload that fails keeps the current snapshot.
//
// The directory is watched rather than the file so that generators that
// replace the catalog by rename are still observed.
func Watch(ctx context.Context, h *Holder, src *storage.FS, name string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target, err := src.Path(name)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("catalog watcher: started", slog.String("path", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("catalog watcher: stopped")
			return nil

		case <-reloadCh:
			reload(ctx, h, src, name, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(ctx context.Context, h *Holder, src storage.Source, name string, logger *slog.Logger, cb ReloadCallback) {
	c, err := Load(ctx, src, name)
	if err != nil {
		logger.Warn("catalog watcher: reload failed, keeping current snapshot", slog.String("error", err.Error()))
		return
	}
	if c.Checksum() == h.Current().Checksum() {
		logger.Debug("catalog watcher: unchanged")
		return
	}
	h.Store(c)
	logger.Info("catalog watcher: reloaded", slog.Int("items", c.Len()))
	if cb != nil {
		cb(c)
	}
}
