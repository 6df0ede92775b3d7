package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/historybot/internal/app"
)

func postCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish today's event once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			postCfg := cfg
			if dryRun {
				postCfg = app.DryRun(cfg)
			}

			bot, closeBot, err := app.Wire(cmd.Context(), postCfg, true, log)
			if err != nil {
				return err
			}
			defer closeBot()

			res, err := bot.Post(cmd.Context(), "cli")
			if errors.Is(err, app.ErrAlreadyPosted) {
				fmt.Println("Already posted today.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Posted to %v: %s\n", res.Published, res.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the post instead of publishing; the day stays unposted")
	return cmd
}
