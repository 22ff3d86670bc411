package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ytqueue/internal/batch"
	"ytqueue/internal/job"
	"ytqueue/internal/preflight"
	"ytqueue/internal/queue"
	"ytqueue/internal/queueaccess"
)

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newQueueAddCommand(ctx),
		newQueueAddBatchCommand(ctx),
		newQueueListCommand(ctx),
		newQueueStatusCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueMoveCommand(ctx),
		newQueueExportCommand(ctx),
		newQueueImportCommand(ctx),
		newQueueClearCommand(ctx, "queue-clear", "Remove every queue item", queue.ClearAll, "queue items"),
		newQueueClearCommand(ctx, "queue-clear-failed", "Remove failed queue items", queue.ClearFailed, "failed items"),
		newQueueClearCommand(ctx, "queue-clear-completed", "Remove completed and failed queue items", queue.ClearFinished, "finished items"),
		newQueueRetryCommand(ctx),
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "queue-add <file>",
		Short: "Queue one audio file for generation and upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.Verify(cfg); err != nil {
				return err
			}
			params, err := flags.params(cmd, cfg)
			if err != nil {
				return err
			}
			opts, err := flags.batchOptions(cmd, cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			j, err := batch.NewJob(args[0], flags.output, params, opts)
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				items, err := access.Add(cmd.Context(), []job.Job{j})
				if err != nil {
					return err
				}
				printQueued(cmd, items)
				return nil
			})
		},
	}
	flags.register(cmd, "Destination video path (default <basename>.mp4)")
	return cmd
}

func newQueueAddBatchCommand(ctx *commandContext) *cobra.Command {
	var flags generateFlags
	var csvPath string

	cmd := &cobra.Command{
		Use:   "queue-add-batch [files...]",
		Short: "Queue several audio files in one batch",
		Long: "Queue several audio files at once. A CSV file with a file column and optional\n" +
			"title, description, tags and publish_at columns supplies per-file metadata;\n" +
			"without explicit files every CSV row is queued.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 && strings.TrimSpace(csvPath) == "" {
				return errors.New("provide files or --csv")
			}
			if err := preflight.Verify(cfg); err != nil {
				return err
			}
			var rows []batch.Row
			if strings.TrimSpace(csvPath) != "" {
				rows, err = batch.LoadCSV(csvPath)
				if err != nil {
					return err
				}
			}
			params, err := flags.params(cmd, cfg)
			if err != nil {
				return err
			}
			outputDir := cfg.Paths.OutputDir
			if strings.TrimSpace(flags.output) != "" {
				outputDir = flags.output
			}
			opts, err := flags.batchOptions(cmd, outputDir)
			if err != nil {
				return err
			}
			jobs, err := batch.Build(args, rows, params, opts)
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				items, err := access.Add(cmd.Context(), jobs)
				if err != nil {
					return err
				}
				printQueued(cmd, items)
				return nil
			})
		},
	}
	flags.register(cmd, "Output directory for generated videos")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with per-file metadata")
	cmd.Flags().StringVarP(&flags.output, "dir", "d", "", "Alias for --output")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var format string
	var statuses []string

	cmd := &cobra.Command{
		Use:   "queue-list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				return writeQueueList(cmd, format, items)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or table")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "queue-status",
		Short: "Show per-status queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				summary, err := access.Summary(cmd.Context())
				if err != nil {
					return err
				}
				return writeQueueSummary(cmd, format, summary)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or table")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-remove <index>",
		Short: "Remove the item at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				item, err := access.Remove(cmd.Context(), idx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d %s\n", idx, item.Label)
				return nil
			})
		},
	}
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-move <from> <to>",
		Short: "Move an item to another position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				if err := access.Move(cmd.Context(), from, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved #%d to #%d\n", from, to)
				return nil
			})
		},
	}
}

func newQueueExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-export <file>",
		Short: "Write the queue to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				count, err := access.Export(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", count, path)
				return nil
			})
		},
	}
}

func newQueueImportCommand(ctx *commandContext) *cobra.Command {
	var appendItems bool

	cmd := &cobra.Command{
		Use:   "queue-import <file>",
		Short: "Load queue items from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				count, err := access.Import(cmd.Context(), path, appendItems)
				if err != nil {
					return err
				}
				verb := "Replaced queue with"
				if appendItems {
					verb = "Appended"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d items from %s\n", verb, count, path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&appendItems, "append", false, "Append to the current queue instead of replacing it")
	return cmd
}

func newQueueClearCommand(ctx *commandContext, use, short string, scope queue.ClearScope, noun string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), string(scope))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, noun)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-retry [index...]",
		Short: "Return failed items to pending (all failed items when no index is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			indexes := make([]int, 0, len(args))
			for _, arg := range args {
				idx, err := parseIndex(arg)
				if err != nil {
					return err
				}
				indexes = append(indexes, idx)
			}
			return ctx.withAccess(func(access queueaccess.Access) error {
				updated, err := access.Retry(cmd.Context(), indexes)
				if err != nil {
					return err
				}
				if updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed items to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d items\n", updated)
				return nil
			})
		},
	}
}

func parseIndex(value string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", value)
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: index %d is negative", queue.ErrOutOfRange, idx)
	}
	return idx, nil
}
