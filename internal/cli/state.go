package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/store"
)

func newStateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset local UI state and caches",
	}
	cmd.AddCommand(newStateShowCmd(app))
	cmd.AddCommand(newStateResetTourCmd(app))
	cmd.AddCommand(newStateClearCacheCmd(app))
	return cmd
}

func openUIState(app *App) *store.UIState {
	return store.OpenUIState(app.cfg.CacheDir)
}

func newStateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored UI state and cache stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			ui := openUIState(app)
			tour := ui.Tour()

			out := map[string]any{
				"configPath": app.ConfigPath,
				"cacheDir":   app.cfg.CacheDir,
				"lastView":   ui.LastView(),
				"tour": map[string]any{
					"step":      tour.StepIndex,
					"completed": tour.Completed,
					"dismissed": tour.Dismissed,
				},
			}
			if pref, ok := ui.EntriesSort(); ok {
				out["entriesSort"] = pref
			}
			if cache, err := store.OpenPayloadCache(ctx, app.cfg.CacheDir); err == nil {
				if windows, bytes, err := cache.Stats(ctx); err == nil {
					out["payloadCache"] = map[string]any{"windows": windows, "bytes": bytes}
				}
				_ = cache.Close()
			}
			return writeOut(cmd, app, out)
		},
	}
}

func newStateResetTourCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-tour",
		Short: "Restart the onboarding tour from its first step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := openUIState(app).ResetTour(); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tour reset")
			return nil
		},
	}
}

func newStateClearCacheCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop the HTTP and payload caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			cache, err := store.OpenPayloadCache(ctx, app.cfg.CacheDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			clearErr := cache.Clear(ctx)
			_ = cache.Close()
			if clearErr != nil {
				return writeErr(cmd, clearErr)
			}
			// The HTTP cache is plain files keyed by URL hash.
			if err := os.RemoveAll(filepath.Join(app.cfg.CacheDir, "http")); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Caches cleared")
			return nil
		},
	}
}
