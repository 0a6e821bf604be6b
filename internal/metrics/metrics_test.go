package metrics_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filer/internal/metrics"
	"filer/internal/testsupport"
)

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "filer.prom")
	err := metrics.WriteTextfile(path, metrics.RunStats{
		FilesByMethod: map[string]int{"similarity": 2, "ai": 3},
		Failures:      1,
		Duration:      1500 * time.Millisecond,
		FinishedAt:    time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	content := testsupport.ReadFile(t, path)
	for _, line := range []string{
		`filer_run_files_total{method="ai"} 3`,
		`filer_run_files_total{method="similarity"} 2`,
		`filer_run_failures_total 1`,
		`filer_run_unclassified_total 0`,
		`filer_run_duration_seconds 1.5`,
		`filer_last_run_timestamp_seconds `,
	} {
		if !strings.Contains(content, line) {
			t.Fatalf("textfile missing %q:\n%s", line, content)
		}
	}
}

func TestWriteTextfileDisabled(t *testing.T) {
	if err := metrics.WriteTextfile("", metrics.RunStats{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
