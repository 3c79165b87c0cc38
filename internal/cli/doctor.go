package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"timetracker-web/internal/store"
	"timetracker-web/internal/version"
)

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config, API reachability and cache health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			checks := runDoctorChecks(ctx, app)

			hasErrors := false
			for _, c := range checks {
				if !c.OK {
					hasErrors = true
				}
			}

			if app.Output != "text" {
				if err := writeOut(cmd, app, map[string]any{"checks": checks, "hasErrors": hasErrors}); err != nil {
					return err
				}
			} else {
				plain := termenv.EnvColorProfile() == termenv.Ascii
				for _, c := range checks {
					mark := "ok"
					style := okStyle
					if !c.OK {
						mark = "FAIL"
						style = failStyle
					}
					if !plain {
						mark = style.Render(mark)
					}
					line := fmt.Sprintf("%-6s %s", mark, c.Name)
					if c.Detail != "" {
						line += " — " + c.Detail
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}

			if fail && hasErrors {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Exit non-zero when a check fails")
	return cmd
}

func runDoctorChecks(ctx context.Context, app *App) []doctorCheck {
	cfg := app.cfg
	var checks []doctorCheck

	checks = append(checks, doctorCheck{
		Name:   "config",
		OK:     true,
		Detail: "listen " + cfg.Listen + ", timezone " + cfg.Location().String(),
	})

	cacheOK := doctorCheck{Name: "cache dir", OK: true, Detail: cfg.CacheDir}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		cacheOK.OK = false
		cacheOK.Detail = err.Error()
	} else {
		probe := filepath.Join(cfg.CacheDir, ".doctor-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
			cacheOK.OK = false
			cacheOK.Detail = err.Error()
		} else {
			_ = os.Remove(probe)
		}
	}
	checks = append(checks, cacheOK)

	payload := doctorCheck{Name: "payload cache", OK: true}
	if cache, err := store.OpenPayloadCache(ctx, cfg.CacheDir); err != nil {
		payload.OK = false
		payload.Detail = err.Error()
	} else {
		if windows, bytes, err := cache.Stats(ctx); err == nil {
			payload.Detail = fmt.Sprintf("%d cached windows, %d bytes", windows, bytes)
		}
		_ = cache.Close()
	}
	checks = append(checks, payload)

	api := doctorCheck{Name: "calendar api", Detail: cfg.API.BaseURL}
	client, err := newAPIClient(app)
	switch {
	case err != nil:
		api.Detail = err.Error()
	case client.Ping(ctx):
		api.OK = true
		if meta, err := client.Meta(ctx); err == nil {
			api.Detail = cfg.API.BaseURL + ", server " + meta.Version
			if version.Outdated(version.Version, meta.MinAppVersion) {
				api.OK = false
				api.Detail += ", requires app >= " + meta.MinAppVersion
			}
		}
	default:
		api.Detail = cfg.API.BaseURL + " unreachable"
	}
	checks = append(checks, api)

	return checks
}
