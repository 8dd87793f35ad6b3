package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher calls a trigger function whenever files are created in or written
// to a folder, coalescing bursts of events into a single call.
type Watcher struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

func NewWatcher(dir string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		watcher:  fsWatcher,
		logger:   logger,
	}, nil
}

// Trigger runs once per settled burst of changes and returns the paths it
// wrote. Events on those paths are ignored until the next run, so a batch whose
// output folder is its input folder does not re-trigger itself.
type Trigger func(ctx context.Context) []string

// Run blocks until ctx is cancelled. trigger is never called concurrently
// with itself.
func (w *Watcher) Run(ctx context.Context, trigger Trigger) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	written := make(map[string]struct{})

	w.logger.Info("Watching folder", zap.String("path", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if _, own := written[filepath.Clean(event.Name)]; own {
				continue
			}
			w.logger.Debug("Folder changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			written = make(map[string]struct{})
			for _, path := range trigger(ctx) {
				written[filepath.Clean(path)] = struct{}{}
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	// Temp files written by the converter when output and input share a folder.
	base := filepath.Base(event.Name)
	return !(strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".tmp"))
}
