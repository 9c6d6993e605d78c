package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports rewrites of a snapshot file. The parent directory is
// watched so editors that replace the file by rename are still seen.
type Watcher struct {
	path     string
	onChange func()
	logger   *slog.Logger
	owner    Store
}

// NewWatcher creates a watcher that calls onChange after each rewrite of path.
func NewWatcher(path string, onChange func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger,
	}
}

// IgnoreWritesFrom suppresses notifications for rewrites made by store, which
// already announces its own deletes.
func (w *Watcher) IgnoreWritesFrom(store Store) *Watcher {
	w.owner = store
	return w
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file watcher: %w", closeErr)
		}
	}()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching card snapshot", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				if w.ownWrite() {
					w.logger.Debug("skipping own snapshot rewrite", "path", event.Name)
					continue
				}
				w.logger.Debug("card snapshot changed", "path", event.Name, "op", event.Op.String())
				w.onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) ownWrite() bool {
	if w.owner == nil {
		return false
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false
	}
	return w.owner.IsOwnWrite(data)
}
