// Package preflight provides readiness checks for the external engine,
// filesystem paths and the notification endpoint.
//
// These checks run in two contexts:
//   - queue-add and queue-run call Verify so a missing engine is reported
//     before anything is enqueued or started.
//   - the status command uses RunAll and CheckSystemDeps to display health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
