// Package main hosts the filer CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds a console logger,
// and hands off to the internal packages: workflow for run and watch,
// preflight for doctor, history for the move journal. Keep heavy lifting in
// internal/ and surface it here through commands and flags.
package main
