package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"filer/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListMoves(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	when := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

	moves := []history.Move{
		{RunID: "r1", Source: "/in/a.txt", FinalPath: "/out/docs/a.txt", Method: "similarity", Status: "done", RecordedAt: when},
		{RunID: "r1", Source: "/in/b.txt", Method: "ai", Status: "failed", ErrorKind: "transient", ErrorMessage: "busy", RecordedAt: when.Add(time.Second)},
	}
	for _, move := range moves {
		if err := store.RecordMove(ctx, move); err != nil {
			t.Fatalf("RecordMove returned error: %v", err)
		}
	}

	got, err := store.RecentMoves(ctx, 10)
	if err != nil {
		t.Fatalf("RecentMoves returned error: %v", err)
	}
	want := []history.Move{moves[1], moves[0]}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(history.Move{}, "ID")); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}

	limited, err := store.RecentMoves(ctx, 1)
	if err != nil {
		t.Fatalf("RecentMoves returned error: %v", err)
	}
	if len(limited) != 1 || limited[0].Source != "/in/b.txt" {
		t.Fatalf("unexpected limited moves %+v", limited)
	}
}

func TestRecordRunReplacesSameRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	run := history.Run{RunID: "r1", StartedAt: start, FinishedAt: start.Add(time.Minute), Incoming: 3, AI: 1}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	run.Failed = 2
	run.DryRun = true
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns returned error: %v", err)
	}
	if diff := cmp.Diff([]history.Run{run}, runs); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.RecordMove(context.Background(), history.Move{RunID: "r", Source: "/a", Method: "ai", Status: "done"}); err != nil {
		t.Fatalf("RecordMove returned error: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	moves, err := reopened.RecentMoves(context.Background(), 0)
	if err != nil || len(moves) != 1 {
		t.Fatalf("expected one persisted move, got %d (err %v)", len(moves), err)
	}
}
