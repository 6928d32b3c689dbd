package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/Yuliya3k/spacegame-sub000/internal/app"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Tick the world until interrupted, then save it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Sources: cli.EnvVars("NPCSIM_CONFIG"),
				Usage:   "World configuration file (HCL)",
			},
			&cli.StringFlag{
				Name:    "load",
				Sources: cli.EnvVars("NPCSIM_LOAD"),
				Usage:   "Resume from this save file",
			},
			&cli.StringFlag{
				Name:    "save",
				Sources: cli.EnvVars("NPCSIM_SAVE"),
				Usage:   "Write the save here instead of the configured path",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Do not save the world on exit",
			},
			&cli.BoolFlag{
				Name:    "observe",
				Sources: cli.EnvVars("NPCSIM_OBSERVE"),
				Usage:   "Serve world frames over websocket",
			},
			&cli.StringFlag{
				Name:    "addr",
				Sources: cli.EnvVars("NPCSIM_OBSERVER_ADDR"),
				Usage:   "Observer listen address",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this much wall time",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, closeLog, err := newLogger(cmd.Root().ErrWriter, cmd.String("log-level"), cmd.String("log-file"))
			if err != nil {
				return err
			}
			defer closeLog()

			return app.Run(ctx, app.Options{
				ConfigPath:   cmd.String("config"),
				LoadPath:     cmd.String("load"),
				SavePath:     cmd.String("save"),
				NoSave:       cmd.Bool("no-save"),
				Observe:      cmd.Bool("observe"),
				ObserverAddr: cmd.String("addr"),
				Duration:     cmd.Duration("duration"),
				Logger:       logger,
				Stdout:       cmd.Root().Writer,
			})
		},
	}
}
