package main

import (
	"strings"

	"github.com/spf13/pflag"

	"ytqueue/internal/config"
)

type daemonArgs struct {
	configPath string
	socketPath string
}

func parseArgs(args []string) (daemonArgs, error) {
	var parsed daemonArgs
	fs := pflag.NewFlagSet("ytqueued", pflag.ContinueOnError)
	fs.StringVarP(&parsed.configPath, "config", "c", "", "Configuration file path")
	fs.StringVar(&parsed.socketPath, "socket", "", "Override the daemon socket path")
	if err := fs.Parse(args); err != nil {
		return daemonArgs{}, err
	}
	parsed.configPath = strings.TrimSpace(parsed.configPath)
	parsed.socketPath = strings.TrimSpace(parsed.socketPath)
	return parsed, nil
}

func buildSocketPath(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	if cfg == nil {
		return ""
	}
	return cfg.SocketPath()
}
