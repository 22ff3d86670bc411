package preflight

import (
	"context"
	"fmt"
	"strings"

	"ytqueue/internal/config"
	"ytqueue/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	if cfg.Watch.Enabled {
		results = append(results, CheckDirectoryAccess("Watch directory", cfg.Watch.Dir))
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Verify fails when a required engine binary is missing.
func Verify(cfg *config.Config) error {
	missing := deps.Missing(CheckSystemDeps(cfg))
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, len(missing))
	for i, status := range missing {
		parts[i] = fmt.Sprintf("%s (%s)", status.Name, status.Detail)
	}
	return fmt.Errorf("missing dependencies: %s", strings.Join(parts, ", "))
}
