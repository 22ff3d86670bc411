// Package services holds the small pieces shared by the runner and the
// external engine client.
//
// Context helpers stamp the job id, dispatch index, phase and correlation id
// so log lines can be attributed without threading extra parameters. Error
// markers plus Wrap give external failures a consistent "phase: operation:
// message" shape, and FailureMessage turns them into the text recorded on a
// failed queue item.
package services
