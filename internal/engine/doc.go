// Package engine defines the external operations the runner delegates to
// (video generation and upload) and provides an exec-based client for the
// external engine binary.
//
// The command receives its request as JSON on stdin and reports on stdout,
// one line at a time, using either JSON objects ({"progress": 42.5},
// {"result": "..."}, {"error": "..."}) or bare "NN%" progress lines. Anything
// else is ignored. Stderr is kept for error reporting.
package engine
