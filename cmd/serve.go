package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/spotomi/internal/server"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/tools"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the integration HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "Host to bind (overrides config)",
				Aliases: []string{"H"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Port to bind (overrides config)",
				Aliases: []string{"p"},
			},
		},
		Action: r.Serve,
	}
}

// Serve assembles the router and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	credentials := r.config.Credentials.Spotify
	if credentials.ClientID == "" || credentials.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be configured", shared.ErrMissingCredentials)
	}

	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}

	st, closeStore, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	authService, err := services.NewSpotifyService(credentials.Map())
	if err != nil {
		return fmt.Errorf("failed to create spotify service: %w", err)
	}

	factory := services.NewUserFactory(credentials.Map(), st, r.logger)
	engine := tools.NewEngine(factory, st, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.RequestLogger(r.logger))
	router.Handler(server.NewAuthHandler(authService, st, r.logger))
	router.Handler(server.NewToolsHandler(engine, r.logger))
	router.Handler(server.NewManifestHandler(tools.DefaultManifest(), r.logger))
	router.Handler(server.NewSettingsHandler(st, factory, r.logger))

	srv := &http.Server{
		Addr:              r.config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", srv.Addr, "store", r.config.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		r.logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
		r.logger.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	r.logger.Info("server stopped")
	return nil
}
