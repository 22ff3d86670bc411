// Package logging builds the slog loggers used by the CLI and the daemon.
//
// Console output renders a one-line header ("time LEVEL [component] Job id
// (phase) – message") followed by a few highlighted fields; JSON output keeps
// every attribute for machine consumption. The daemon tees both: console on
// stdout and JSON into the log directory, tagged with a per-run session id.
package logging
