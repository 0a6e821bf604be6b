package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// mirror is a secondary destination such as a per-run log file. It is
// dropped after its first write error and the failure is reported once
// through the primary handler.
type mirror struct {
	handler slog.Handler
	broken  *atomic.Bool
}

// teeHandler writes to a primary handler and mirrors every record to
// secondary handlers, each applying its own level.
type teeHandler struct {
	primary slog.Handler
	mirrors []mirror
}

func newTeeHandler(primary slog.Handler, extra ...slog.Handler) slog.Handler {
	var mirrors []mirror
	for _, h := range extra {
		if h == nil {
			continue
		}
		if primary == nil {
			primary = h
			continue
		}
		mirrors = append(mirrors, mirror{handler: h, broken: new(atomic.Bool)})
	}
	switch {
	case primary == nil:
		return NoopHandler{}
	case len(mirrors) == 0:
		return primary
	}
	return &teeHandler{primary: primary, mirrors: mirrors}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, m := range h.mirrors {
		if !m.broken.Load() && m.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, m := range h.mirrors {
		if m.broken.Load() || !m.handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := m.handler.Handle(ctx, record.Clone()); err != nil && m.broken.CompareAndSwap(false, true) {
			h.reportMirrorFailure(ctx, err)
		}
	}
	if !h.primary.Enabled(ctx, record.Level) {
		return nil
	}
	return h.primary.Handle(ctx, record)
}

func (h *teeHandler) reportMirrorFailure(ctx context.Context, err error) {
	if !h.primary.Enabled(ctx, slog.LevelWarn) {
		return
	}
	rec := slog.NewRecord(time.Now(), slog.LevelWarn, "log mirror disabled after write error", 0)
	rec.AddAttrs(
		String(FieldEventType, "log_mirror_failed"),
		Error(err),
		String(FieldImpact, "remaining records go to the console only"),
	)
	_ = h.primary.Handle(ctx, rec)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

// derive applies fn to every destination; derived handlers share the broken
// flags so a failed mirror stays off for the whole logger tree.
func (h *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	mirrors := make([]mirror, len(h.mirrors))
	for i, m := range h.mirrors {
		mirrors[i] = mirror{handler: fn(m.handler), broken: m.broken}
	}
	return &teeHandler{primary: fn(h.primary), mirrors: mirrors}
}

// TeeLogger returns a logger that writes to base and mirrors every record to
// the extra handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	var primary slog.Handler
	if base != nil {
		primary = base.Handler()
	}
	return slog.New(newTeeHandler(primary, handlers...))
}
