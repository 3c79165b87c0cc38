package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/ics"
	"timetracker-web/internal/model"
	"timetracker-web/internal/recurrence"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		fromStr string
		toStr   string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a date window as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := app.cfg.Location()
			now := time.Now().In(loc)

			from := model.StartOfWeek(now, app.cfg.WeekStart)
			to := from.AddDate(0, 0, 7)
			if fromStr != "" {
				d, err := model.ParseDay(fromStr, loc)
				if err != nil {
					return writeErr(cmd, err)
				}
				from = d
			}
			if toStr != "" {
				d, err := model.ParseDay(toStr, loc)
				if err != nil {
					return writeErr(cmd, err)
				}
				to = d.AddDate(0, 0, 1)
			}
			if !from.Before(to) {
				return writeErr(cmd, fmt.Errorf("empty window: %s is not before %s", from.Format("2006-01-02"), to.Format("2006-01-02")))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client, err := newAPIClient(app)
			if err != nil {
				return err
			}
			payload, err := client.FetchWindow(ctx, from, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			records := recurrence.Expand(payload.Records(), from, to)

			var items []*model.CalendarItem
			for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
				items = append(items, model.BuildDayItems(records, day, loc)...)
			}
			body := ics.Export(items, now)

			if outPath == "" || outPath == "-" {
				fmt.Fprint(cmd.OutOrStdout(), body)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(body), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s\n", len(items), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "First day (YYYY-MM-DD, default: start of this week)")
	cmd.Flags().StringVar(&toStr, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
