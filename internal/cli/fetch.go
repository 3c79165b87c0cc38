package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/refresh"
	"timetracker-web/internal/store"
)

func newFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Refresh the cached calendar data now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			client, err := newAPIClient(app)
			if err != nil {
				return err
			}
			cache, err := store.OpenPayloadCache(ctx, app.cfg.CacheDir)
			if err != nil {
				return err
			}
			defer cache.Close()

			svc := refresh.NewService(client, cache, app.log)
			snap, err := svc.RefreshNow(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}

			if app.Output != "text" {
				return writeOut(cmd, app, map[string]any{
					"records":   len(snap.Records),
					"stale":     snap.Stale,
					"fetchedAt": snap.FetchedAt,
				})
			}
			if snap.Stale {
				fmt.Fprintf(cmd.OutOrStdout(), "API unreachable; %d cached records from %s\n",
					len(snap.Records), snap.FetchedAt.Format(time.RFC3339))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d records\n", len(snap.Records))
			return nil
		},
	}
	return cmd
}
