package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns live session state (tick, active grids) to stamp
// on every record.
type ContextProvider func() []slog.Attr

// fanout hands each record to every output that accepts its level.
type fanout []slog.Handler

func newFanout(outputs ...slog.Handler) fanout {
	f := make(fanout, 0, len(outputs))
	for _, h := range outputs {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every output even when one fails and reports the joined
// errors.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// stamped appends the provider's attributes to each record before passing it
// on. Attributes are read at Handle time so they track the simulation.
type stamped struct {
	next  slog.Handler
	attrs ContextProvider
}

func (s stamped) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s stamped) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(s.attrs()...)
	return s.next.Handle(ctx, r)
}

func (s stamped) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stamped{next: s.next.WithAttrs(attrs), attrs: s.attrs}
}

func (s stamped) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return stamped{next: s.next.WithGroup(name), attrs: s.attrs}
}
