package daemonctl_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ytqueue/internal/api"
	"ytqueue/internal/daemonctl"
	"ytqueue/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []api.DependencyStatus
		severity string
		detail   string
	}{
		{name: "empty", severity: "info", detail: "No dependency checks configured"},
		{
			name:     "all available",
			deps:     []api.DependencyStatus{{Name: "engine", Available: true}},
			severity: "ok",
			detail:   "1/1 available",
		},
		{
			name: "optional missing",
			deps: []api.DependencyStatus{
				{Name: "engine", Available: true},
				{Name: "ffmpeg", Optional: true},
			},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
		{
			name:     "required missing",
			deps:     []api.DependencyStatus{{Name: "engine"}, {Name: "ffmpeg", Optional: true}},
			severity: "error",
			detail:   "0/2 available (missing: 1 required, 1 optional)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := daemonctl.BuildDependencySummary(tc.deps)
			if got.Severity != tc.severity || got.Detail != tc.detail {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustAdd(t, store, testsupport.GenerateJob("/audio/a.wav"), testsupport.GenerateJob("/audio/b.wav"))

	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), filepath.Join(t.TempDir(), "none.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Online {
		t.Fatal("expected offline snapshot")
	}
	if snap.Status.Summary.Pending != 2 || snap.Status.Runner.State != "offline" {
		t.Fatalf("unexpected offline status %+v", snap.Status)
	}
	if len(snap.Status.Dependencies) == 0 {
		t.Fatal("expected dependency checks in offline snapshot")
	}
}

func TestConnectReportsMissingDaemon(t *testing.T) {
	_, err := daemonctl.Connect(filepath.Join(t.TempDir(), "none.sock"))
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
