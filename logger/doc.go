// Package logger provides typed slog attribute helpers for the log fields
// this library emits, keeping attribute keys consistent across packages.
// The library itself never configures a sink: services default to a
// discarding handler and accept a *slog.Logger via options.
package logger
