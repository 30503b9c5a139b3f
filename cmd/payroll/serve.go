package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-basis/api"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int
	var seed string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), a, seed)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides server.port)")
	cmd.Flags().StringVar(&seed, "seed", "", "Load a demo scenario at startup (resets the database)")
	return cmd
}

// runServe starts the server and blocks until SIGINT/SIGTERM, then drains
// active requests for up to shutdownTimeout.
func runServe(ctx context.Context, a *app, seed string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	locker, closeLocker, err := a.newLocker(ctx)
	if err != nil {
		store.Close()
		return err
	}
	defer closeAll(a.logger, closeLocker, store.Close)

	if seed != "" {
		loaded, err := api.SeedScenario(ctx, store, seed)
		if err != nil {
			return err
		}
		a.logger.Info().Str("scenario", loaded.ID).Str("org_id", loaded.OrgID).Msg("demo scenario loaded")
	}

	handler := api.NewHandler(store, a.newRefresher(store, locker), a.logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Metrics:        a.cfg.Metrics.Enabled,
	})
	server := api.NewServer(a.cfg.Addr(), router, a.cfg.Server.RequestTimeout)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", server.Addr).
			Str("db", a.cfg.Database.Path).
			Int("workers", a.cfg.Refresh.Workers).
			Msg("payroll API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
