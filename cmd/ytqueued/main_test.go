package main

import (
	"path/filepath"
	"testing"

	"ytqueue/internal/config"
)

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"-c", " /etc/ytqueue.toml ", "--socket", "/run/yt.sock"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if got.configPath != "/etc/ytqueue.toml" || got.socketPath != "/run/yt.sock" {
		t.Fatalf("unexpected args %+v", got)
	}

	if _, err := parseArgs([]string{"--bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestBuildSocketPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")

	expected := filepath.Join(cfg.Paths.DataDir, "ytqueue.sock")
	if got := buildSocketPath(&cfg, ""); got != expected {
		t.Fatalf("expected socket path %q, got %q", expected, got)
	}
	if got := buildSocketPath(&cfg, "/tmp/override.sock"); got != "/tmp/override.sock" {
		t.Fatalf("override ignored, got %q", got)
	}
	if got := buildSocketPath(nil, ""); got != "" {
		t.Fatalf("expected empty path without config, got %q", got)
	}
}
