// Package services defines shared utilities consumed by the run pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, batch numbers, and file
//     names for logging.
//   - Structured error markers plus the Wrap helper that let callers decide
//     whether a failure is isolated to one file, one batch, or the whole run.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
