package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ytqueue/internal/config"
	"ytqueue/internal/daemonrun"
	"ytqueue/internal/preflight"
)

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := preflight.Verify(cfg); err != nil {
		log.Fatalf("preflight: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		SocketPath: buildSocketPath(cfg, opts.socketPath),
	}); err != nil {
		log.Fatalf("ytqueued: %v", err)
	}
}
