// Package logging assembles the structured slog loggers used across
// notepipe components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log
// lines with run IDs, item paths, and stage names automatically. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
