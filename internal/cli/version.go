package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/version"
)

func newVersionCmd(app *App) *cobra.Command {
	var checkServer bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]any{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
			}

			if checkServer {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				if client, err := newAPIClient(app); err == nil {
					if meta, err := client.Meta(ctx); err == nil {
						out["server"] = meta.Version
						out["updateAvailable"] = version.UpdateAvailable(version.Version, meta.Version)
						if meta.MinAppVersion != "" {
							out["outdated"] = version.Outdated(version.Version, meta.MinAppVersion)
						}
					}
				}
			}

			if app.Output != "text" {
				return writeOut(cmd, app, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "timetracker %s (%s, %s)\n", version.Version, version.Commit, version.Date)
			if s, ok := out["server"]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "server %v\n", s)
				if out["updateAvailable"] == true {
					fmt.Fprintln(cmd.OutOrStdout(), "update available")
				}
				if out["outdated"] == true {
					fmt.Fprintln(cmd.OutOrStdout(), "this build is below the server's minimum app version")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkServer, "check", false, "Also query the API server's version")
	return cmd
}
