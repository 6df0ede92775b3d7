package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/historybot/internal/app"
)

func previewCmd() *cobra.Command {
	var date string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the post for a day without publishing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			bot, closeBot, err := app.Wire(cmd.Context(), cfg, false, log)
			if err != nil {
				return err
			}
			defer closeBot()

			var res *app.Result
			if date == "" {
				res = bot.Preview(cmd.Context())
			} else {
				t, err := time.ParseInLocation("2006-01-02", date, loc)
				if err != nil {
					return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
				}
				res = bot.PreviewAt(cmd.Context(), t)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to preview as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
