package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "npcsim",
		Usage: "Run and inspect the crew routine simulation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("NPCSIM_LOG_LEVEL"),
				Usage:   "Process log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Sources: cli.EnvVars("NPCSIM_LOG_FILE"),
				Usage:   "Also write process logs as JSON lines to this file",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			inspectCommand(),
		},
	}
}
