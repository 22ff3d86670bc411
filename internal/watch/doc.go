// Package watch polls a directory and enqueues audio files that appear in it.
//
// Files present when the watcher starts are ignored. A new file is enqueued
// once its size and modification time are unchanged across two polls, so
// files still being copied are not picked up early.
package watch
