// Package daemonrun assembles the processor runtime: logger, queue store,
// engine client, daemon and IPC server. It backs both `ytqueue daemon` and a
// foreground `ytqueue queue-run` when no daemon is reachable.
package daemonrun
