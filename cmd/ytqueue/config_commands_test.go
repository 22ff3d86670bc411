package main

import (
	"os"
	"path/filepath"
	"testing"

	"ytqueue/internal/job"
	"ytqueue/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "config", "validate")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out = env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}

func TestConfigProfiles(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithProfile("podcast", job.GenerateParams{Privacy: "unlisted", Tags: []string{"pod"}}),
		testsupport.WithProfile("music", job.GenerateParams{Background: "/art/vinyl.png"}),
	)

	out := env.mustRun(t, "config", "profiles")
	requireContains(t, out, "podcast")
	requireContains(t, out, "music")
	requireContains(t, out, "/art/vinyl.png")

	out = env.mustRun(t, "config", "profiles", "--json")
	requireContains(t, out, `"privacy": "unlisted"`)
}

func TestConfigProfilesEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "config", "profiles")
	requireContains(t, out, "No profiles configured")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "test-notify")
	requireContains(t, out, "ntfy topic not configured")
}
