package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/idle"
	"timetracker-web/internal/refresh"
	"timetracker-web/internal/shortcuts"
	"timetracker-web/internal/store"
	"timetracker-web/internal/toast"
	"timetracker-web/internal/version"
	"timetracker-web/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI with background refresh and idle tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				app.cfg.Listen = listen
			}
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", envOr("TIMETRACKER_LISTEN", ""), "Bind address (overrides config)")
	return cmd
}

func runServe(parent context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.cfg
	logger := app.log

	client, err := newAPIClient(app)
	if err != nil {
		return err
	}

	cache, err := store.OpenPayloadCache(ctx, cfg.CacheDir)
	if err != nil {
		return err
	}
	defer cache.Close()

	toasts := toast.NewCenter()
	ui := store.OpenUIState(cfg.CacheDir)

	tracker := idle.NewTracker(idle.Config{
		IdleAfter:   cfg.Idle.IdleAfter,
		AwayAfter:   cfg.Idle.AwayAfter,
		PromptAfter: cfg.Idle.PromptAfter,
	})

	svc := refresh.NewService(client, cache, logger)
	svc.SetAwayCheck(tracker.NobodyWatching)
	svc.SetWeekStart(cfg.WeekStart)
	if err := svc.Start(cfg.Refresh.Cron); err != nil {
		return err
	}
	defer svc.Stop()

	srv, err := web.NewServer(web.ServerConfig{
		Addr:       cfg.Listen,
		Loc:        cfg.Location(),
		WeekStart:  cfg.WeekStart,
		AppVersion: version.Version,
	}, web.Deps{
		Refresh:   svc,
		Toasts:    toasts,
		Shortcuts: shortcuts.Default(),
		UIState:   ui,
		Idle:      tracker,
		API:       client,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer srv.Stop()

	go warnVersionSkew(ctx, app, client, toasts)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	logger.Info("web ui listening", "addr", cfg.Listen, "api", cfg.API.BaseURL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// warnVersionSkew asks the API for its version metadata once at startup
// and raises a toast when this build is behind.
func warnVersionSkew(ctx context.Context, app *App, client *apiclient.Client, toasts *toast.Center) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	meta, err := client.Meta(ctx)
	if err != nil {
		app.log.Debug("server meta unavailable", "err", err)
		return
	}
	if version.Outdated(version.Version, meta.MinAppVersion) {
		toasts.Error("Update required",
			"The calendar API requires app version "+meta.MinAppVersion+" or newer; this build is "+version.Version+".")
		return
	}
	if version.UpdateAvailable(version.Version, meta.Version) {
		toasts.Info("Update available",
			"Server version "+meta.Version+" is out; this build is "+version.Version+".")
	}
}
