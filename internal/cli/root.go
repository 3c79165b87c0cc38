// Package cli wires the cobra command tree: the serve daemon, the
// terminal preview and the scriptable commands that work against the
// same API client and local caches without a browser.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/format"
	"timetracker-web/internal/store"
)

type App struct {
	ConfigPath string
	Output     string
	Verbose    bool

	cfg *store.Config
	log *log.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "timetracker",
		Short:        "Calendar views for tracked time, events and tasks",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the web UI
  timetracker serve

  # Today's calendar in the terminal
  timetracker preview

  # Direct day lookup (shortcut for: timetracker preview --day <date>)
  timetracker 2026-03-10

  # Scriptable data access
  timetracker entries --kind time_entry --output json
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.HasSubCommands() && len(args) == 0 {
				return runPreview(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.log = newLogger(app.Verbose)
		cfg, err := store.LoadConfig(app.ConfigPath)
		if err != nil {
			return err
		}
		app.cfg = cfg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TIMETRACKER_CONFIG", ""), "Path to config file (default: ~/.config/timetracker/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Output, "output", envOr("TIMETRACKER_OUTPUT", "text"), "Output format for data commands (text|json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "Debug logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPreviewCmd(app))
	cmd.AddCommand(newEntriesCmd(app))
	cmd.AddCommand(newFetchCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newSnapshotCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func newLogger(verbose bool) *log.Logger {
	opts := log.Options{ReportTimestamp: true}
	if verbose {
		opts.Level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, opts)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// newAPIClient builds the cached API client from the loaded config.
func newAPIClient(app *App) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL:  app.cfg.API.BaseURL,
		CacheDir: app.cfg.CacheDir,
		Timeout:  app.cfg.API.Timeout,
		Logger:   app.log,
	})
}

// writeOut renders v in the requested structured format. Commands with
// a textual rendering branch on app.Output before calling this; for the
// rest, text falls back to pretty JSON.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	out := app.Output
	if out == "text" {
		out = "json"
	}
	return format.Write(cmd.OutOrStdout(), v, out, true)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
