// Package metrics exports per-run counters in the node_exporter textfile
// format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunStats is the per-run input to WriteTextfile.
type RunStats struct {
	FilesByMethod map[string]int
	Failures      int
	Unclassified  int
	Duration      time.Duration
	FinishedAt    time.Time
}

// WriteTextfile renders stats to path atomically. An empty path is a no-op.
func WriteTextfile(path string, stats RunStats) error {
	if path == "" {
		return nil
	}
	registry := prometheus.NewRegistry()

	files := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "filer_run_files_total",
		Help: "Files resolved by the last run, by method.",
	}, []string{"method"})
	failures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filer_run_failures_total",
		Help: "Files the last run failed to move.",
	})
	unclassified := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filer_run_unclassified_total",
		Help: "Files the classifier gave no answer for in the last run.",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filer_run_duration_seconds",
		Help: "Wall time of the last run.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filer_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})
	registry.MustRegister(files, failures, unclassified, duration, lastRun)

	for method, count := range stats.FilesByMethod {
		files.WithLabelValues(method).Set(float64(count))
	}
	failures.Set(float64(stats.Failures))
	unclassified.Set(float64(stats.Unclassified))
	duration.Set(stats.Duration.Seconds())
	finished := stats.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	lastRun.Set(float64(finished.Unix()))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
