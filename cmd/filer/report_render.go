package main

import (
	"fmt"
	"strings"
	"time"

	"filer/internal/mover"
	"filer/internal/workflow"
)

// renderReport formats a run report as a table for terminals and as
// tab-separated lines otherwise.
func renderReport(report *workflow.Report, table bool) string {
	if report == nil {
		return ""
	}
	var b strings.Builder
	if len(report.Results) > 0 {
		if table {
			rows := make([][]string, 0, len(report.Results))
			for _, r := range report.Results {
				rows = append(rows, []string{r.File, r.Method, string(r.Status), destination(r), resultDetail(r)})
			}
			b.WriteString(renderTable(
				[]string{"File", "Method", "Status", "Destination", "Detail"},
				rows,
			))
			b.WriteString("\n")
		} else {
			for _, r := range report.Results {
				fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Status, r.Method, r.File, destination(r))
				if detail := resultDetail(r); detail != "" {
					fmt.Fprintf(&b, "\t%s", detail)
				}
				b.WriteString("\n")
			}
		}
	}
	for _, name := range report.Deferred {
		fmt.Fprintf(&b, "deferred\t%s\t(modified too recently)\n", name)
	}
	b.WriteString(summaryLine(report))
	b.WriteString("\n")
	return b.String()
}

func summaryLine(report *workflow.Report) string {
	c := report.Counts
	prefix := "Run"
	if report.DryRun {
		prefix = "Dry run"
	}
	line := fmt.Sprintf("%s %s: %d incoming, %d similarity, %d ai, %d dry-run, %d skipped, %d failed, %d unclassified",
		prefix, shortID(report.RunID), report.Incoming, c.Similarity, c.AI, c.DryRun, c.Skipped, c.Failed, c.Unclassified)
	if report.FailedBatches > 0 {
		line += fmt.Sprintf(", %d of %d batches failed", report.FailedBatches, report.Batches)
	}
	if d := report.Duration(); d > 0 {
		line += fmt.Sprintf(" (%s)", d.Round(time.Millisecond))
	}
	return line
}

func destination(r workflow.Result) string {
	switch {
	case r.RelativePath != "":
		return r.RelativePath
	case r.TargetDir != "":
		return r.TargetDir + "/"
	default:
		return "-"
	}
}

func resultDetail(r workflow.Result) string {
	var parts []string
	switch {
	case r.Status == mover.StatusFailed:
		parts = append(parts, r.Error)
	case r.MatchedFile != "":
		parts = append(parts, fmt.Sprintf("like %s (%.2f)", r.MatchedFile, r.Score))
	case r.Confidence != nil:
		parts = append(parts, fmt.Sprintf("confidence %.2f", *r.Confidence))
	}
	if r.FallbackReason != "" {
		parts = append(parts, "fallback: "+r.FallbackReason)
	}
	if r.Renamed {
		parts = append(parts, "renamed")
	}
	if r.CrossDevice {
		parts = append(parts, "copied across devices")
	}
	return strings.Join(parts, "; ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
