package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/snapshot"
)

func newSnapshotCmd(app *App) *cobra.Command {
	var opts snapshot.Options
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render a calendar view to PNG through headless Chromium",
		Long: `Render a calendar view to PNG through headless Chromium.

The target is a running web UI ("timetracker serve"), local or remote.
Chromium waits for the calendar's ready marker before capturing, so the
image always shows a fully laid-out grid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.BaseURL == "" {
				opts.BaseURL = "http://" + app.cfg.Listen
			}
			opts.Timeout = time.Duration(timeoutSec) * time.Second

			if err := snapshot.Capture(cmd.Context(), opts); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "url", "", "Base URL of the web UI (default: the configured listen address)")
	cmd.Flags().StringVar(&opts.View, "view", "day", "View to capture (day|week|month)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "Date to capture (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&opts.OutputPath, "out", "o", "calendar.png", "Output PNG path")
	cmd.Flags().IntVar(&opts.Width, "width", snapshot.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", snapshot.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 30, "Capture timeout in seconds")
	return cmd
}
