// Package logging assembles the structured slog loggers used by filer.
//
// It owns the console and JSON handlers, tees run output into a per-run log
// file, and exposes context-aware helpers so workflow code automatically tags
// log lines with the run ID, batch number, stage and file name. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
