// Package api defines the wire types shared by the IPC server, the HTTP API
// and the CLI, plus a client for the daemon's websocket event stream.
//
// DTOs use camelCase JSON tags. Queue statuses are exposed as lowercase
// strings and every list entry carries its current zero-based position, since
// positions are how the command surface addresses items. Timestamps are
// RFC3339 with milliseconds.
package api
