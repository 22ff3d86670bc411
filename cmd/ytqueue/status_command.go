package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytqueue/internal/api"
	"ytqueue/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, runner and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snap.Status)
			}

			stdout := cmd.OutOrStdout()
			colorize := isTerminal(stdout)
			writeSection(stdout, "Daemon", colorize, daemonLines(snap, colorize))
			writeSection(stdout, "Dependencies", colorize, dependencyLines(snap.Status.Dependencies, snap.Dependencies, colorize))

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Status", "Count"},
				buildQueueStatusRows(snap.Status.Summary),
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")
	return cmd
}

func daemonLines(snap daemonctl.Snapshot, colorize bool) []string {
	st := snap.Status
	var lines []string
	if snap.Online {
		detail := fmt.Sprintf("Running (pid %d)", st.PID)
		if st.StartedAt != "" {
			detail += ", since " + st.StartedAt
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}

	lines = append(lines, renderStatusLine("Runner", runnerKind(st.Runner.State), runnerDetail(st.Runner), colorize))
	lines = append(lines, renderStatusLine("Backend", statusInfo, fmt.Sprintf("%s (%s)", st.Backend, orNone(st.QueuePath)), colorize))
	if snap.Online {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, orNone(st.APIAddress), colorize))
		schedule := "Not scheduled"
		if st.Schedule.Expression != "" {
			schedule = fmt.Sprintf("%s (next %s)", st.Schedule.Expression, orNone(st.Schedule.NextRun))
		}
		lines = append(lines, renderStatusLine("Schedule", statusInfo, schedule, colorize))
		watch := "Disabled"
		if st.Watch.Enabled {
			watch = fmt.Sprintf("%s (auto upload: %s)", st.Watch.Dir, yesNo(st.Watch.AutoUpload))
		}
		lines = append(lines, renderStatusLine("Watch", statusInfo, watch, colorize))
	}
	return lines
}

func runnerKind(state string) statusKind {
	switch state {
	case "processing":
		return statusOK
	case "paused":
		return statusWarn
	default:
		return statusInfo
	}
}

func runnerDetail(status api.RunnerStatus) string {
	detail := status.State
	if detail == "" {
		detail = "unknown"
	}
	if cur := status.Current; cur != nil {
		detail = fmt.Sprintf("%s: #%d %s", detail, cur.Index, cur.Label)
		if cur.Phase != "" {
			detail += fmt.Sprintf(" (%s %.0f%%)", cur.Phase, cur.Progress)
		}
	}
	if status.Completed+status.Failed > 0 {
		detail += fmt.Sprintf(" [pass: %d completed, %d failed]", status.Completed, status.Failed)
	}
	return detail
}

func dependencyLines(deps []api.DependencyStatus, summary daemonctl.DependencySummary, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "none"
	}
	return value
}
