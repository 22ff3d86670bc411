package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ytqueue/internal/api"
	"ytqueue/internal/daemonctl"
	"ytqueue/internal/daemonrun"
	"ytqueue/internal/events"
	"ytqueue/internal/ipc"
	"ytqueue/internal/monitor"
	"ytqueue/internal/preflight"
)

const (
	daemonStartTimeout = 10 * time.Second
	followPollInterval = 500 * time.Millisecond
)

func newRunnerCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newQueueRunCommand(ctx),
		newRunnerControlCommand(ctx, "queue-pause", "Pause after the current job", (*ipc.Client).RunnerPause),
		newRunnerControlCommand(ctx, "queue-resume", "Resume a paused runner", (*ipc.Client).RunnerResume),
		newRunnerControlCommand(ctx, "queue-cancel", "Cancel the running job", (*ipc.Client).RunnerCancel),
		newQueueWatchCommand(ctx),
	}
}

func newQueueRunCommand(ctx *commandContext) *cobra.Command {
	var retryFailed bool
	var detach bool

	cmd := &cobra.Command{
		Use:   "queue-run",
		Short: "Process pending queue items",
		Long: "Process pending queue items. With a daemon running the request is forwarded\n" +
			"to it and progress is followed until the runner goes idle. Without one this\n" +
			"process becomes the processor until the queue drains, or launches a\n" +
			"background daemon with --detach.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.Verify(cfg); err != nil {
				return err
			}

			if client, err := ipc.Dial(ctx.socketPath()); err == nil {
				defer client.Close()
				return runViaDaemon(cmd, client, retryFailed, detach, cfg.Paths.APIToken)
			}

			if detach {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				client, _, err := daemonctl.EnsureRunning(ctx.socketPath(), exe, daemonctl.LaunchOptions{
					SocketPath: ctx.socketPath(),
					ConfigPath: ctx.configPath,
				}, daemonStartTimeout)
				if err != nil {
					return err
				}
				defer client.Close()
				return runViaDaemon(cmd, client, retryFailed, true, cfg.Paths.APIToken)
			}

			printer := newProgressPrinter(cmd.OutOrStdout())
			status, err := daemonrun.RunQueue(cmd.Context(), cfg, daemonrun.QueueOptions{
				Options: daemonrun.Options{
					SocketPath: ctx.socketPath(),
					Engine:     ctx.engine,
				},
				RetryFailed: retryFailed,
				OnEvent:     printer.handle,
			})
			printer.finish()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue finished: %d completed, %d failed\n", status.Completed, status.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Return failed items to pending before processing")
	cmd.Flags().BoolVar(&detach, "detach", false, "Hand processing to a background daemon and return")
	return cmd
}

func runViaDaemon(cmd *cobra.Command, client *ipc.Client, retryFailed, detach bool, token string) error {
	resp, err := client.RunnerRun(retryFailed)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if detach {
		fmt.Fprintf(out, "Daemon runner %s\n", resp.Runner.State)
		return nil
	}

	var stream *api.EventStream
	if status, err := client.Status(); err == nil && status.Status.APIAddress != "" {
		stream, _ = api.DialEvents(cmd.Context(), status.Status.APIAddress, token)
	}
	printer := newProgressPrinter(out)
	final, err := followRunner(cmd.Context(), client, stream, printer)
	printer.finish()
	if stream != nil {
		_ = stream.Close()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Queue finished: %d completed, %d failed\n", final.Completed, final.Failed)
	return nil
}

// followRunner relays events until the daemon runner leaves processing.
// Without an event stream it polls the runner state.
func followRunner(ctx context.Context, client *ipc.Client, stream *api.EventStream, printer *progressPrinter) (api.RunnerStatus, error) {
	var eventsC <-chan events.Event
	if stream != nil {
		eventsC = stream.C()
	}
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return api.RunnerStatus{}, ctx.Err()
		case evt, ok := <-eventsC:
			if !ok {
				eventsC = nil
				continue
			}
			printer.handle(evt)
			if evt.Type != events.QueueChanged {
				continue
			}
		case <-ticker.C:
		}
		status, err := client.Status()
		if err != nil {
			return api.RunnerStatus{}, err
		}
		if status.Status.Runner.State != "processing" {
			return status.Status.Runner, nil
		}
	}
}

func newRunnerControlCommand(ctx *commandContext, use, short string, call func(*ipc.Client) (*ipc.RunnerResponse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Runner %s\n", resp.Runner.State)
				return nil
			})
		},
	}
}

func newQueueWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-watch",
		Short: "Interactive view of the queue and runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if status.Status.APIAddress == "" {
					return errors.New("daemon HTTP API is disabled; queue-watch needs the event stream")
				}
				stream, err := api.DialEvents(cmd.Context(), status.Status.APIAddress, cfg.Paths.APIToken)
				if err != nil {
					return err
				}
				defer stream.Close()
				return monitor.Run(cmd.Context(), monitor.NewIPCBackend(client), stream)
			})
		},
	}
}
