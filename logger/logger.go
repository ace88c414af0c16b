// Package logger builds the application's slog.Logger: colored console
// output, a daily JSON log file and an optional Fluent Bit sink.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

type Options struct {
	Level   slog.Level
	Console io.Writer // defaults to os.Stdout
	NoColor bool
	Dir     string // daily JSON files; empty disables file logging

	FluentEnabled bool
	FluentHost    string
	FluentPort    int
	FluentTag     string
}

// New returns the logger and a closer that flushes file and fluent sinks.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      opts.Level,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    opts.NoColor,
		}),
	}
	var closers closeAll

	if opts.Dir != "" {
		file, err := NewDailyFile(opts.Dir, "app")
		if err != nil {
			return nil, nil, fmt.Errorf("open log dir: %w", err)
		}
		closers = append(closers, file)
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: opts.Level}))
	}

	if opts.FluentEnabled {
		client, err := fluent.New(fluent.Config{
			FluentHost: opts.FluentHost,
			FluentPort: opts.FluentPort,
			TagPrefix:  opts.FluentTag,
			Async:      true,
		})
		if err != nil {
			_ = closers.Close()
			return nil, nil, fmt.Errorf("connect fluent: %w", err)
		}
		closers = append(closers, client)
		handlers = append(handlers, NewFluentHandler(client, opts.Level))
	}

	return slog.New(Fanout(handlers...)), closers, nil
}

type closeAll []io.Closer

func (c closeAll) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a logger for tests and tools that do not care about output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fanout struct {
	handlers []slog.Handler
}

// Fanout sends every record to each handler that accepts its level.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: out}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}
	return &fanout{handlers: out}
}
