// ABOUTME: Structured logging setup
// ABOUTME: Coloured console output plus a rotated log file
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger
type Options struct {
	// File is the log file path; empty disables file logging
	File string

	// Console also writes to stdout. Off while the TUI owns the terminal.
	Console bool

	// Level is shared by all handlers so it can change at runtime
	Level *slog.LevelVar
}

// Setup builds the process logger. Close the returned closer on exit.
func Setup(opts Options) (*slog.Logger, io.Closer) {
	if opts.Level == nil {
		opts.Level = new(slog.LevelVar)
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		closer = rotator
		handlers = append(handlers, tint.NewHandler(rotator, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}))
	}

	if opts.Console {
		handlers = append(handlers, tint.NewHandler(os.Stdout, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		}))
	}

	switch len(handlers) {
	case 0:
		// The TUI owns stdout and no file was given
		return slog.New(slog.DiscardHandler), closer
	case 1:
		return slog.New(handlers[0]), closer
	}
	return slog.New(fanout(handlers)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends every record to each handler that accepts its level
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
