package workflow_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"filer/internal/classifier"
	"filer/internal/config"
	"filer/internal/history"
	"filer/internal/logging"
	"filer/internal/mover"
	"filer/internal/runlock"
	"filer/internal/services"
	"filer/internal/testsupport"
	"filer/internal/workflow"
)

// stubBackend answers each Classify call with respond(callIndex, request).
type stubBackend struct {
	mu       sync.Mutex
	requests []classifier.Request
	respond  func(call int, req classifier.Request) ([]classifier.Suggestion, error)
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Classify(_ context.Context, req classifier.Request) ([]classifier.Suggestion, error) {
	b.mu.Lock()
	call := len(b.requests)
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	return b.respond(call, req)
}

func byName(paths map[string]string) func(int, classifier.Request) ([]classifier.Suggestion, error) {
	return func(_ int, req classifier.Request) ([]classifier.Suggestion, error) {
		var out []classifier.Suggestion
		for _, item := range req.Items {
			if p, ok := paths[item.FileName]; ok {
				out = append(out, classifier.Suggestion{FileName: item.FileName, Path: p})
			}
		}
		return out, nil
	}
}

func newRunner(t *testing.T, cfg *config.Config, backend classifier.Backend, opts ...workflow.Option) *workflow.Runner {
	t.Helper()
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: cfg.Classifier.DefaultBucket})
	ids := 0
	opts = append([]workflow.Option{
		workflow.WithRunIDs(func() string {
			ids++
			return "run-" + string(rune('0'+ids))
		}),
		workflow.WithMoverOptions(mover.WithSleeper(func(context.Context, time.Duration) error { return nil })),
	}, opts...)
	return workflow.New(cfg, adapter, logging.NewNop(), opts...)
}

func incoming(t *testing.T, cfg *config.Config, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.IncomingDir, name), "content of "+name)
	}
}

// listTree returns every file and directory under root.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

func TestRunMovesSimilarityMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DestinationDir, "工作文档", "报告2024.docx"), "old")
	incoming(t, cfg, "报告2025.docx")

	backend := &stubBackend{respond: func(int, classifier.Request) ([]classifier.Suggestion, error) {
		t.Fatal("classifier should not be called for a similarity hit")
		return nil, nil
	}}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	target := filepath.Join(cfg.Paths.DestinationDir, "工作文档", "报告2025.docx")
	if got := testsupport.ReadFile(t, target); got != "content of 报告2025.docx" {
		t.Fatalf("unexpected content %q", got)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.IncomingDir, "报告2025.docx"))
	if report.Counts.Similarity != 1 || report.Counts.AI != 0 {
		t.Fatalf("unexpected counts %+v", report.Counts)
	}
	result := report.Results[0]
	if result.Method != workflow.MethodSimilarity || result.MatchedFile != "工作文档/报告2024.docx" || result.Score < 0.65 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunEmptyClassifierPathUsesDefaultBucket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	incoming(t, cfg, "scan0001.pdf")

	backend := &stubBackend{respond: byName(map[string]string{"scan0001.pdf": ""})}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	testsupport.ReadFile(t, filepath.Join(cfg.Paths.DestinationDir, "未分类", "scan0001.pdf"))
	if report.Counts.AI != 1 || report.Results[0].FallbackReason != classifier.ReasonEmptyPath {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunLaterBatchesSeeNewDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(2))
	incoming(t, cfg, "a.txt", "b.txt", "c.txt")

	backend := &stubBackend{respond: byName(map[string]string{"a.txt": "A", "b.txt": "A/B", "c.txt": "A/B"})}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(backend.requests) != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", len(backend.requests))
	}
	if len(backend.requests[0].KnownDirs) != 0 {
		t.Fatalf("first batch should see an empty tree, got %v", backend.requests[0].KnownDirs)
	}
	if diff := cmp.Diff([]string{"A", "A/B"}, backend.requests[1].KnownDirs); diff != "" {
		t.Fatalf("second batch known dirs mismatch (-want +got):\n%s", diff)
	}
	if report.Batches != 2 || report.Counts.AI != 3 {
		t.Fatalf("unexpected report counts %+v batches=%d", report.Counts, report.Batches)
	}
	want := []string{"A/B/b.txt", "A/B/c.txt", "A/a.txt"}
	if diff := cmp.Diff(want, testsupport.ListFiles(t, cfg.Paths.DestinationDir)); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBatchFailureDoesNotStopLaterBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	incoming(t, cfg, "first.txt", "second.txt")

	backend := &stubBackend{respond: func(call int, req classifier.Request) ([]classifier.Suggestion, error) {
		if call == 0 {
			return nil, errors.New("upstream 502")
		}
		return byName(map[string]string{"second.txt": "Docs"})(call, req)
	}}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.FailedBatches != 1 || report.Counts.Failed != 1 || report.Counts.AI != 1 || !report.HasFailures() {
		t.Fatalf("unexpected report %+v", report)
	}
	failed := report.Results[0]
	if failed.File != "first.txt" || failed.Status != mover.StatusFailed || !errors.Is(failed.Err(), services.ErrExternalTool) {
		t.Fatalf("unexpected failed result %+v", failed)
	}

	// Every incoming file is in exactly one place.
	if diff := cmp.Diff([]string{"first.txt"}, testsupport.ListFiles(t, cfg.Paths.IncomingDir)); diff != "" {
		t.Fatalf("incoming mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Docs/second.txt"}, testsupport.ListFiles(t, cfg.Paths.DestinationDir)); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestRunConfigurationFailureSkipsLaterBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	incoming(t, cfg, "a.txt", "b.txt", "c.txt")

	backend := &stubBackend{respond: func(int, classifier.Request) ([]classifier.Suggestion, error) {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "stub", "API key rejected", nil)
	}}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(backend.requests) != 1 {
		t.Fatalf("expected a single classifier call, got %d", len(backend.requests))
	}
	if report.Batches != 1 || report.FailedBatches != 1 || report.Counts.Failed != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, r := range report.Results {
		if !errors.Is(r.Err(), services.ErrConfiguration) {
			t.Fatalf("expected configuration failure for %s, got %v", r.File, r.Err())
		}
	}
	if diff := cmp.Diff([]string{"a.txt", "b.txt", "c.txt"}, testsupport.ListFiles(t, cfg.Paths.IncomingDir)); diff != "" {
		t.Fatalf("incoming mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMissingEntryCountsUnclassified(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	incoming(t, cfg, "known.txt", "forgotten.txt")

	backend := &stubBackend{respond: byName(map[string]string{"known.txt": "Notes"})}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Counts.Unclassified != 1 || report.Counts.AI != 2 {
		t.Fatalf("unexpected counts %+v", report.Counts)
	}
	want := []string{"Notes/known.txt", "未分类/forgotten.txt"}
	if diff := cmp.Diff(want, testsupport.ListFiles(t, cfg.Paths.DestinationDir)); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun())
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DestinationDir, "invoices", "invoice-0001.pdf"), "old")
	incoming(t, cfg, "invoice-0002.pdf", "holiday.jpg")

	beforeIncoming := listTree(t, cfg.Paths.IncomingDir)
	beforeDest := listTree(t, cfg.Paths.DestinationDir)

	backend := &stubBackend{respond: byName(map[string]string{"holiday.jpg": "Photos/2024"})}
	report, err := newRunner(t, cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if diff := cmp.Diff(beforeIncoming, listTree(t, cfg.Paths.IncomingDir)); diff != "" {
		t.Fatalf("incoming changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeDest, listTree(t, cfg.Paths.DestinationDir)); diff != "" {
		t.Fatalf("destination changed (-before +after):\n%s", diff)
	}
	if !report.DryRun || report.Counts.DryRun != 2 || report.Counts.Similarity != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	methods := report.FilesByMethod()
	if methods[workflow.MethodSimilarity] != 1 || methods[workflow.MethodAI] != 1 {
		t.Fatalf("unexpected methods %v", methods)
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	defer lock.Release()

	backend := &stubBackend{respond: byName(nil)}
	if _, err := newRunner(t, cfg, backend).Run(context.Background()); !errors.Is(err, runlock.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRunUnreadableDestinationAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.Paths.DestinationDir); err != nil {
		t.Fatalf("remove destination: %v", err)
	}
	testsupport.WriteFile(t, cfg.Paths.DestinationDir, "not a directory")
	incoming(t, cfg, "a.txt")

	backend := &stubBackend{respond: byName(nil)}
	_, err := newRunner(t, cfg, backend).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	testsupport.ReadFile(t, filepath.Join(cfg.Paths.IncomingDir, "a.txt"))
}

type describerFunc func(ctx context.Context, paths []string) []string

func (f describerFunc) DescribeAll(ctx context.Context, paths []string) []string { return f(ctx, paths) }

type memoryJournal struct {
	moves []history.Move
	runs  []history.Run
}

func (j *memoryJournal) RecordMove(_ context.Context, move history.Move) error {
	j.moves = append(j.moves, move)
	return nil
}

func (j *memoryJournal) RecordRun(_ context.Context, run history.Run) error {
	j.runs = append(j.runs, run)
	return nil
}

func TestRunSendsDescriptionsAndJournals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Textfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "filer.prom")
	incoming(t, cfg, "a.txt", "b.txt")

	describer := describerFunc(func(_ context.Context, paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = "about " + filepath.Base(p)
		}
		return out
	})
	journal := &memoryJournal{}
	backend := &stubBackend{respond: byName(map[string]string{"a.txt": "X", "b.txt": "Y"})}

	report, err := newRunner(t, cfg, backend, workflow.WithDescriber(describer), workflow.WithJournal(journal)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantItems := []classifier.Item{{FileName: "a.txt", Description: "about a.txt"}, {FileName: "b.txt", Description: "about b.txt"}}
	if diff := cmp.Diff(wantItems, backend.requests[0].Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if len(journal.moves) != 2 || len(journal.runs) != 1 {
		t.Fatalf("unexpected journal contents moves=%d runs=%d", len(journal.moves), len(journal.runs))
	}
	if journal.runs[0].RunID != report.RunID || journal.moves[0].RunID != report.RunID || journal.runs[0].AI != 2 {
		t.Fatalf("journal not tied to run: %+v", journal.runs[0])
	}
	if content := testsupport.ReadFile(t, cfg.Metrics.Textfile); !strings.Contains(content, `filer_run_files_total{method="ai"} 2`) {
		t.Fatalf("metrics missing ai count:\n%s", content)
	}
}

func TestRunWithoutClassifierFailsUnmatchedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	incoming(t, cfg, "orphan.txt")

	report, err := workflow.New(cfg, nil, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Counts.Failed != 1 || !errors.Is(report.Results[0].Err(), services.ErrConfiguration) {
		t.Fatalf("unexpected report %+v", report)
	}
	testsupport.ReadFile(t, filepath.Join(cfg.Paths.IncomingDir, "orphan.txt"))
}
