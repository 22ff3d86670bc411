package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ytqueue/internal/api"
	"ytqueue/internal/fileutil"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var statusTitle = cases.Title(language.English)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatTable:
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected json or table)", format)
	}
}

func writeQueueList(cmd *cobra.Command, format string, items []api.QueueItem) error {
	if items == nil {
		items = []api.QueueItem{}
	}
	if format == formatJSON {
		return writeJSON(cmd, api.QueueListResponse{Items: items})
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(
		[]string{"#", "Status", "Kind", "Label", "Dest", "Retries", "Error"},
		buildQueueListRows(items),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Index),
			statusTitle.String(item.Status),
			item.Kind,
			item.Label,
			item.Dest,
			strconv.Itoa(item.Retries),
			item.Error,
		})
	}
	return rows
}

type queueSummaryOutput struct {
	api.QueueSummary
	Total int `json:"total"`
}

func writeQueueSummary(cmd *cobra.Command, format string, summary api.QueueSummary) error {
	if format == formatJSON {
		return writeJSON(cmd, queueSummaryOutput{QueueSummary: summary, Total: summary.Total()})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(
		[]string{"Status", "Count"},
		buildQueueStatusRows(summary),
		[]columnAlignment{alignLeft, alignRight},
	))
	return nil
}

func buildQueueStatusRows(summary api.QueueSummary) [][]string {
	counts := []struct {
		status string
		count  int
	}{
		{"pending", summary.Pending},
		{"running", summary.Running},
		{"failed", summary.Failed},
		{"completed", summary.Completed},
		{"total", summary.Total()},
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{statusTitle.String(c.status), strconv.Itoa(c.count)})
	}
	return rows
}

func printQueued(cmd *cobra.Command, items []api.QueueItem) {
	out := cmd.OutOrStdout()
	for _, item := range items {
		fmt.Fprintf(out, "Queued #%d %s -> %s\n", item.Index, item.Label, item.Dest)
	}
	if len(items) > 1 {
		fmt.Fprintf(out, "%d jobs queued\n", len(items))
	}
}

func absArg(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("path is required")
	}
	return fileutil.AbsPath(value)
}
