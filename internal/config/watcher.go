// ABOUTME: Polling config reloader
// ABOUTME: Re-reads the file when its modification time changes
package config

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// DefaultPollInterval is how often the watcher checks the file
const DefaultPollInterval = 10 * time.Second

// Watcher delivers a freshly loaded File whenever the file on disk changes
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(*File)
	logger   *slog.Logger
	modTime  time.Time
}

// NewWatcher creates a watcher. The current modification time is taken as
// the baseline so the initial load is not delivered again.
func NewWatcher(path string, interval time.Duration, onChange func(*File), logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		path:     path,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
	if info, err := os.Stat(path); err == nil {
		w.modTime = info.ModTime()
	}
	return w
}

// Run polls until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-ctx.Done():
			return nil
		}
	}
}

// check reloads the file if it changed. Invalid files are logged and
// skipped; the running configuration stays in place.
func (w *Watcher) check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(w.modTime) {
		return false
	}
	w.modTime = info.ModTime()

	w.logger.Info("Reloading configuration", "path", w.path)
	f, err := Load(w.path)
	if err != nil {
		w.logger.Error("Ignoring invalid configuration", "path", w.path, "error", err)
		return false
	}

	w.onChange(f)
	return true
}
