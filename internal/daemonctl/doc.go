// Package daemonctl holds CLI-side helpers for talking to or launching the
// ytqueue daemon: detached launch, socket waits and the status snapshot that
// falls back to the store when no daemon is reachable.
package daemonctl
