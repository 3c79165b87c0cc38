package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"timetracker-web/internal/datatable"
	"timetracker-web/internal/format"
	"timetracker-web/internal/model"
)

func newEntriesCmd(app *App) *cobra.Command {
	var (
		sortKey string
		sortDir string
		kind    string
		query   string
		page    int
	)

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List events, tasks and time entries as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := newAPIClient(app)
			if err != nil {
				return err
			}

			loc := app.cfg.Location()
			now := time.Now().In(loc)
			from, to := now.AddDate(0, -1, 0), now.AddDate(0, 1, 0)
			payload, err := client.FetchWindow(ctx, from, to)
			if err != nil {
				return writeErr(cmd, err)
			}

			filter := datatable.Filter{Query: query}
			if k := model.ItemKind(kind); k == model.KindEvent || k == model.KindTask || k == model.KindTimeEntry {
				filter.Kinds = []model.ItemKind{k}
			} else if kind != "" {
				return writeErr(cmd, fmt.Errorf("unknown kind %q (event, task or time_entry)", kind))
			}

			rows := datatable.FromRecords(payload.Records(), now, loc)
			result := datatable.Apply(rows, filter, datatable.SortFromQuery(sortKey, sortDir), datatable.Page{Number: page})

			if app.Output != "text" {
				return writeOut(cmd, app, map[string]any{
					"rows":  result.Rows,
					"total": result.TotalRows,
					"page":  result.Page,
					"pages": result.PageCount,
					"stale": payload.Stale,
				})
			}

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow("START", "TITLE", "KIND", "DURATION")
			for _, r := range result.Rows {
				title := r.Title
				if r.Running {
					title += " ●"
				}
				tbl.AddRow(r.Start.Format("Mon, Jan 2 15:04"), title, string(r.Kind), format.Duration(r.DurationMinutes))
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows · page %d of %d\n", result.TotalRows, result.Page, result.PageCount)
			if payload.Stale {
				fmt.Fprintln(cmd.OutOrStdout(), "(offline data)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortKey, "sort", "start", "Sort key (start|title|duration|kind)")
	cmd.Flags().StringVar(&sortDir, "dir", "desc", "Sort direction (asc|desc)")
	cmd.Flags().StringVar(&kind, "kind", "", "Only one kind (event|task|time_entry)")
	cmd.Flags().StringVar(&query, "query", "", "Case-insensitive title filter")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}
