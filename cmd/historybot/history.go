package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deusflow/historybot/internal/app"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently posted days from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, closeBot, err := app.Wire(cmd.Context(), cfg, false, log)
			if err != nil {
				return err
			}
			defer closeBot()

			entries, err := bot.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Nothing posted yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tYEAR\tTRIGGER\tPUBLISHERS\tTEXT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", e.Day, e.Year, e.Trigger, strings.Join(e.Publishers, ","), e.Text)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries to show")
	return cmd
}
