// Package monitor renders the interactive queue view behind `ytqueue
// queue-watch`.
//
// The model is a bubbletea program fed by the daemon websocket stream:
// queue-changed triggers a snapshot reload over the Backend, queue-progress
// updates the running item's bar in place, and queue-notify surfaces the last
// completion or failure on the status line. Runner controls (run, pause,
// resume, cancel) are forwarded to the Backend, normally the IPC client.
package monitor
