package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/app"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a world configuration and any routine files",
		ArgsUsage: "[routine files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Sources: cli.EnvVars("NPCSIM_CONFIG"),
				Usage:   "World configuration file (HCL)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			if paths := cmd.Args().Slice(); len(paths) > 0 {
				library := ai.NewLibrary()
				if err := library.LoadPaths(paths...); err != nil {
					return err
				}
				fmt.Fprintf(out, "routines: %v\n", library.Names())
			}

			cfg, err := app.Check(ctx, cmd.String("config"), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "config ok: %d npcs, %d doors, %d stations\n", len(cfg.NPCs), len(cfg.Doors), len(cfg.Stations))
			return nil
		},
	}
}
