package classifier_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"filer/internal/classifier"
	"filer/internal/services"
)

type fakeBackend struct {
	calls    []classifier.Request
	response []classifier.Suggestion
	err      error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Classify(_ context.Context, req classifier.Request) ([]classifier.Suggestion, error) {
	f.calls = append(f.calls, req)
	return f.response, f.err
}

func confidence(v float64) *float64 { return &v }

func paths(results []classifier.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.FileName+" -> "+r.Path)
	}
	return out
}

func TestClassifyBatchReconcilesByFileName(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{
		{FileName: "b.pdf", Path: "Finance/Invoices"},
		{FileName: "ghost.txt", Path: "Nowhere"},
		{FileName: "a.docx", Path: "Work"},
		{FileName: "a.docx", Path: "Ignored"},
	}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "未分类"})

	items := []classifier.Item{{FileName: "a.docx"}, {FileName: "b.pdf"}, {FileName: "c.png"}}
	got, err := adapter.ClassifyBatch(context.Background(), items, []string{"Work"})
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}

	want := []string{"a.docx -> Work", "b.pdf -> Finance/Invoices", "c.png -> 未分类"}
	if diff := cmp.Diff(want, paths(got.Results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if !got.Results[2].Unclassified() || got.Results[2].FallbackReason != classifier.ReasonMissing {
		t.Fatalf("expected missing entry to be unclassified, got %+v", got.Results[2])
	}
	if diff := cmp.Diff([]string{"ghost.txt"}, got.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
	if len(backend.calls) != 1 || backend.calls[0].DefaultBucket != "未分类" {
		t.Fatalf("unexpected backend calls %+v", backend.calls)
	}
}

func TestClassifyBatchEmptyPathUsesDefaultBucket(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{
		{FileName: "notes.txt", Path: "   "},
		{FileName: "memo.txt", Path: "/../.."},
	}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "未分类"})

	got, err := adapter.ClassifyBatch(context.Background(), []classifier.Item{{FileName: "notes.txt"}, {FileName: "memo.txt"}}, nil)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	for _, result := range got.Results {
		if result.Path != "未分类" || result.FallbackReason != classifier.ReasonEmptyPath {
			t.Fatalf("expected default bucket fallback, got %+v", result)
		}
		if result.Unclassified() {
			t.Fatalf("empty path should not count as unclassified: %+v", result)
		}
	}
}

func TestClassifyBatchMatchesNamesCaseInsensitively(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{{FileName: " REPORT.PDF ", Path: "Work"}}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc"})

	got, err := adapter.ClassifyBatch(context.Background(), []classifier.Item{{FileName: "report.pdf"}}, nil)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	if got.Results[0].Path != "Work" || got.Results[0].FileName != "report.pdf" {
		t.Fatalf("unexpected result %+v", got.Results[0])
	}
}

func TestClassifyBatchKeepsCaseVariantsApart(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{
		{FileName: "Report.pdf", Path: "Work"},
		{FileName: "report.pdf", Path: "Personal"},
	}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc"})

	items := []classifier.Item{{FileName: "Report.pdf"}, {FileName: "report.pdf"}}
	got, err := adapter.ClassifyBatch(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	want := []string{"Report.pdf -> Work", "report.pdf -> Personal"}
	if diff := cmp.Diff(want, paths(got.Results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if len(got.Unknown) != 0 {
		t.Fatalf("expected no unknown entries, got %v", got.Unknown)
	}
}

func TestClassifyBatchIgnoresAmbiguousFoldedName(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{
		{FileName: "Report.pdf", Path: "Work"},
		{FileName: "REPORT.PDF", Path: "Elsewhere"},
	}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc"})

	items := []classifier.Item{{FileName: "Report.pdf"}, {FileName: "report.pdf"}}
	got, err := adapter.ClassifyBatch(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	want := []string{"Report.pdf -> Work", "report.pdf -> misc"}
	if diff := cmp.Diff(want, paths(got.Results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if got.Results[1].FallbackReason != classifier.ReasonMissing {
		t.Fatalf("expected missing fallback, got %+v", got.Results[1])
	}
	if diff := cmp.Diff([]string{"REPORT.PDF"}, got.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyBatchMinConfidence(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{
		{FileName: "low.txt", Path: "Guess", Confidence: confidence(0.2)},
		{FileName: "high.txt", Path: "Sure", Confidence: confidence(0.9)},
		{FileName: "none.txt", Path: "Unrated"},
	}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc", MinConfidence: 0.5})

	items := []classifier.Item{{FileName: "low.txt"}, {FileName: "high.txt"}, {FileName: "none.txt"}}
	got, err := adapter.ClassifyBatch(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	want := []string{"low.txt -> misc", "high.txt -> Sure", "none.txt -> Unrated"}
	if diff := cmp.Diff(want, paths(got.Results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if got.Results[0].FallbackReason != classifier.ReasonLowConfidence {
		t.Fatalf("expected low-confidence fallback, got %+v", got.Results[0])
	}
}

func TestClassifyBatchBackendErrorIsExternal(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection reset")}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc"})

	_, err := adapter.ClassifyBatch(context.Background(), []classifier.Item{{FileName: "a.txt"}}, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected cause in error, got %v", err)
	}
}

func TestClassifyBatchEmptyItemsSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	adapter := classifier.NewAdapter(backend, classifier.Options{})
	got, err := adapter.ClassifyBatch(context.Background(), nil, []string{"A"})
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	if len(got.Results) != 0 || len(backend.calls) != 0 {
		t.Fatalf("expected no backend call, got %+v", backend.calls)
	}
}

func TestClassifyBatchLimitsKnownDirs(t *testing.T) {
	backend := &fakeBackend{response: []classifier.Suggestion{{FileName: "a.txt", Path: "A"}}}
	adapter := classifier.NewAdapter(backend, classifier.Options{DefaultBucket: "misc", MaxKnownDirs: 3})

	dirs := []string{"A/B/C", "A", "A/B", "Z", "Y/X"}
	got, err := adapter.ClassifyBatch(context.Background(), []classifier.Item{{FileName: "a.txt"}}, dirs)
	if err != nil {
		t.Fatalf("ClassifyBatch returned error: %v", err)
	}
	if got.OmittedDirs != 2 {
		t.Fatalf("expected 2 omitted dirs, got %d", got.OmittedDirs)
	}
	if diff := cmp.Diff([]string{"A", "A/B", "Z"}, backend.calls[0].KnownDirs); diff != "" {
		t.Fatalf("known dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestNewAdapterDefaultBucketFallback(t *testing.T) {
	adapter := classifier.NewAdapter(&fakeBackend{}, classifier.Options{DefaultBucket: " / "})
	if adapter.DefaultBucket() != "unclassified" {
		t.Fatalf("unexpected default bucket %q", adapter.DefaultBucket())
	}
	if adapter.Backend() != "fake" {
		t.Fatalf("unexpected backend name %q", adapter.Backend())
	}
}

func TestSanitizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Work/Reports", "Work/Reports"},
		{`Work\Reports\2024`, "Work/Reports/2024"},
		{"/absolute/path/", "absolute/path"},
		{`C:\Users\docs`, "Users/docs"},
		{"../../etc", "etc"},
		{"./a/./b", "a/b"},
		{"A//B", "A/B"},
		{"What?/Why*", "What/Why-"},
		{"工作文档/报告", "工作文档/报告"},
		{"  ", ""},
		{"..", ""},
	}
	for _, tc := range cases {
		if got := classifier.SanitizePath(tc.in); got != tc.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildUserPromptIncludesContext(t *testing.T) {
	prompt, err := classifier.BuildUserPrompt(classifier.Request{
		Items:         []classifier.Item{{FileName: "a.pdf", Description: "PDF, 3 pages"}},
		DefaultBucket: "misc",
	})
	if err != nil {
		t.Fatalf("BuildUserPrompt returned error: %v", err)
	}
	for _, fragment := range []string{`"knownDirs": []`, `"fileName": "a.pdf"`, `"description": "PDF, 3 pages"`, `"defaultBucket": "misc"`} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}
