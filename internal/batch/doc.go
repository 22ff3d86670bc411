// Package batch turns lists of audio files and optional CSV metadata into
// queue jobs.
//
// CSV files carry the columns file, title, description, tags and publish_at
// in any order. The header is matched case-insensitively, quoted fields may
// contain commas, and tags are split on commas. Rows without a file are
// skipped. Per-row metadata overrides the shared params for that file only.
package batch
