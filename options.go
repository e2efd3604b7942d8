package xlform

import (
	"io"
	"log/slog"
	"time"
)

// Observer receives counts from a Session; the metrics package implements it.
type Observer interface {
	EditsGated(accepted, rejected int)
	SaveCompleted(values, events int, err error)
	ExportCompleted(err error)
}

type nopObserver struct{}

func (nopObserver) EditsGated(int, int)          {}
func (nopObserver) SaveCompleted(int, int, error) {}
func (nopObserver) ExportCompleted(error)         {}

// Options holds configuration for a Session.
type Options struct {
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
	sheet    string
}

func defaultOptions() *Options {
	return &Options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		observer: nopObserver{},
	}
}

// Option configures a Session.
type Option func(*Options)

// WithLogger sets the structured logger (default: discard).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used to stamp audit events.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers an Observer for edit, save and export outcomes.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithSheet selects the sheet loaded into the grid when the session opens
// (default: the first sheet of the workbook).
func WithSheet(name string) Option {
	return func(o *Options) { o.sheet = name }
}
