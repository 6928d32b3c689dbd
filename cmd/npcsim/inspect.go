package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Yuliya3k/spacegame-sub000/internal/savegame"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise a save file",
		ArgsUsage: "<save file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("inspect needs exactly one save file")
			}
			f, err := savegame.Read(cmd.Args().First())
			if err != nil {
				return err
			}
			s := savegame.Summarize(f)
			out := cmd.Root().Writer
			fmt.Fprintf(out, "save %s (saved %s)\n", s.SaveID, s.SavedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "tick %d, clock %s\n", s.Tick, s.Clock.Format(time.RFC3339))
			for _, n := range s.NPCs {
				state := "running"
				if n.Frozen {
					state = "frozen"
				}
				fmt.Fprintf(out, "  %-12s %-16s task %d/%d %s\n", n.ID, n.Routine, n.TaskIndex+1, n.Tasks, state)
			}
			return nil
		},
	}
}
