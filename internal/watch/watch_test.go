package watch_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"filer/internal/logging"
	"filer/internal/testsupport"
	"filer/internal/watch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, calls <-chan string, want string) {
	t.Helper()
	select {
	case got := <-calls:
		if got != want {
			t.Fatalf("unexpected trigger %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q trigger", want)
	}
}

func TestRunTriggersOnStartupAndEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	calls := make(chan string, 10)
	count := 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch.Run(ctx, watch.Options{Dir: dir, Debounce: 50 * time.Millisecond, Logger: logging.NewNop()},
			func(context.Context) error {
				count++
				if count == 1 {
					calls <- "startup"
				} else {
					calls <- "event"
				}
				return nil
			})
	}()

	waitFor(t, calls, "startup")
	testsupport.WriteFile(t, filepath.Join(dir, "new.pdf"), "data")
	waitFor(t, calls, "event")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunIntervalAndTriggerErrors(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan string, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch.Run(ctx, watch.Options{Dir: dir, Debounce: time.Second, Interval: 30 * time.Millisecond},
			func(context.Context) error {
				select {
				case calls <- "run":
				default:
				}
				return errors.New("classifier offline")
			})
	}()

	waitFor(t, calls, "run")
	waitFor(t, calls, "run")
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunRequiresTrigger(t *testing.T) {
	if err := watch.Run(context.Background(), watch.Options{Dir: t.TempDir()}, nil); err == nil {
		t.Fatal("expected error for nil trigger")
	}
}
