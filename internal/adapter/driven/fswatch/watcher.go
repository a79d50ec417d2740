// Package fswatch turns writes to the database file by any process into
// in-process wake-ups, so watchers notice cross-process changes before their
// next poll.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a single sqlite commit
// produces (main file, -wal and -shm).
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a database file and its sqlite sidecar files.
type Watcher struct {
	fs       *fsnotify.Watcher
	base     string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger
}

// New watches the directory holding dbPath. onChange runs on the Run
// goroutine after each debounced burst of writes.
func New(dbPath string, debounce time.Duration, onChange func(), logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dbPath, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	// The directory is watched rather than the file: sqlite creates and
	// removes the -wal file as it checkpoints.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		fs:       fsw,
		base:     filepath.Base(abs),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run delivers change notifications until ctx is canceled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			w.logger.Debug("database file changed", "file", w.base)
			w.onChange()
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == w.base || strings.HasPrefix(name, w.base+"-")
}
