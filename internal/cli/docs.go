package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"timetracker-web/internal/docs"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show on-demand documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				if app.Output != "text" {
					return writeOut(cmd, app, map[string]any{"topics": topics})
				}
				for _, t := range topics {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}

			topic := args[0]
			if raw || app.Output != "text" {
				body, ok := docs.Get(topic)
				if !ok {
					return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `timetracker docs` to list topics)", topic))
				}
				if raw {
					fmt.Fprint(cmd.OutOrStdout(), body)
					return nil
				}
				return writeOut(cmd, app, map[string]any{"topic": topic, "markdown": body})
			}

			out, ok, err := docs.Render(topic, 80)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `timetracker docs` to list topics)", topic))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown without terminal styling")
	return cmd
}
