package calibre

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits after the last change.
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback is called once per burst of metadata.db changes.
type ChangeCallback func()

// watchedNames are the files Calibre touches when it commits a change.
var watchedNames = map[string]struct{}{
	MetadataFile:              {},
	MetadataFile + "-wal":     {},
	MetadataFile + "-journal": {},
}

// Watch starts an fsnotify watcher on the library root and calls cb after
// metadata.db (or its journal) changes, debounced by quiet. It blocks until
// ctx is cancelled.
//
// Calibre rewrites the database in several steps per edit, so events are
// coalesced: the timer restarts on every relevant event and cb runs only once
// the library has been quiet for the debounce period.
func Watch(ctx context.Context, root string, quiet time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if quiet <= 0 {
		quiet = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(quiet)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(quiet)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			logger.Debug("watcher: library changed", slog.String("root", root))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, relevant := watchedNames[filepath.Base(ev.Name)]; !relevant {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
