package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type failingHandler struct {
	calls int
}

func (h *failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *failingHandler) Handle(context.Context, slog.Record) error {
	h.calls++
	return errors.New("disk full")
}

func (h *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *failingHandler) WithGroup(string) slog.Handler { return h }

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, nil, inner); h != inner {
		t.Fatal("expected a lone mirror to become the handler")
	}
	if h := newTeeHandler(inner); h != inner {
		t.Fatal("expected primary without mirrors to be returned unwrapped")
	}
}

func TestTeeLoggerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}))
	extra := slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := TeeLogger(base, extra).With(String(FieldRunID, "r1"))
	logger.Debug("verbose detail")
	logger.Info("moved", String("file", "a.txt"))

	if strings.Contains(console.String(), "verbose detail") {
		t.Fatalf("console should drop debug records, got %q", console.String())
	}
	if !strings.Contains(console.String(), "moved") {
		t.Fatalf("console missing info record: %q", console.String())
	}
	for _, want := range []string{"verbose detail", "moved", `"run_id":"r1"`} {
		if !strings.Contains(file.String(), want) {
			t.Fatalf("file output missing %q: %q", want, file.String())
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&buf, nil))
	logger.Info("only extra")
	if !strings.Contains(buf.String(), "only extra") {
		t.Fatalf("expected output in extra handler, got %q", buf.String())
	}
}

func TestTeeLoggerDisablesFailingMirror(t *testing.T) {
	var console bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, nil))
	broken := &failingHandler{}

	logger := TeeLogger(base, broken)
	logger.Info("first")
	logger.With(String("file", "b.txt")).Info("second")

	if broken.calls != 1 {
		t.Fatalf("expected failing mirror to be called once, got %d", broken.calls)
	}
	out := console.String()
	for _, want := range []string{"first", "second", "log_mirror_failed", "disk full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q: %q", want, out)
		}
	}
	if strings.Count(out, "log_mirror_failed") != 1 {
		t.Fatalf("expected a single mirror failure report: %q", out)
	}
}
