package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/model"
	"timetracker-web/internal/recurrence"
	"timetracker-web/internal/tui"
)

func newPreviewCmd(app *App) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show a day's calendar in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, app, day)
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day to show (YYYY-MM-DD, default today)")
	return cmd
}

func runPreview(cmd *cobra.Command, app *App, dayStr string) error {
	loc := app.cfg.Location()

	var day time.Time
	if dayStr != "" {
		d, err := model.ParseDay(dayStr, loc)
		if err != nil {
			return writeErr(cmd, err)
		}
		day = d
	}

	client, err := newAPIClient(app)
	if err != nil {
		return err
	}

	load := func(ctx context.Context, from, to time.Time) ([]model.Record, bool, error) {
		payload, err := client.FetchWindow(ctx, from, to)
		if err != nil {
			return nil, false, err
		}
		return recurrence.Expand(payload.Records(), from, to), payload.Stale, nil
	}

	return tui.Run(cmd.Context(), tui.Options{Load: load, Day: day, Loc: loc})
}
