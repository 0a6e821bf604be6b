// Package preflight provides readiness checks for the directories, binaries
// and classifier settings filer depends on.
//
// The CLI "filer doctor" command renders RunAll as a table. The LLM probe is
// opt-in because it spends a request against the configured provider.
package preflight
