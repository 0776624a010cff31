// Package logging assembles structured slog loggers and formatting helpers.
//
// It owns the console and JSON handlers, level parsing, an optional JSON log
// file tee, and the in-memory StreamHub behind the daemon's log endpoint.
// Context helpers tag lines with the run ID, chunk and model carried on the
// context so pipeline code never threads those fields by hand.
package logging
