// Package main hosts the ytqueue CLI entrypoint and command graph.
//
// Queue commands talk to a running daemon over the IPC socket when one is
// listening and fall back to opening the queue store directly otherwise; the
// store's file lock keeps both paths consistent. queue-run either drives the
// daemon's runner or becomes the processor itself for one pass.
package main
