/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

COMMANDS:
  serve    Run the HTTP server (default)
  seed     Install the statutory default policies
  recalc   Run one batch balance recalculation and exit

STARTUP SEQUENCE (serve):
  1. Load configuration (file + LEAVE_* environment overrides)
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the recalc scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server serve --config ./leave-engine.yaml

  # Seed NES defaults into a fresh database
  ./server seed

  # One-off recalculation for one entity
  ./server recalc --entity entity-au
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlashr/leave-engine/api"
	"github.com/atlashr/leave-engine/config"
	"github.com/atlashr/leave-engine/factory"
	"github.com/atlashr/leave-engine/store/sqlite"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "leave-engine",
		Short: "Leave and time-off calculation engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd(), seedCmd(), recalcCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, *sqlite.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return cfg, logger, store, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			h := api.NewHandler(store, logger)
			router := api.NewRouter(h, api.RouterConfig{
				JWTSecret:   cfg.Auth.JWTSecret,
				CORSOrigins: cfg.Server.CORSOrigins,
			})

			scheduler := api.NewRecalcScheduler(store, h.Aggregator, logger)
			scheduler.Enabled = cfg.Scheduler.Enabled
			if cfg.Scheduler.Interval > 0 {
				scheduler.CheckInterval = cfg.Scheduler.Interval
			}
			scheduler.Start()
			defer scheduler.Stop()

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				logger.Info("shutting down", "signal", sig.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the statutory default leave policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			seeded, err := factory.Seed(cmd.Context(), store)
			if err != nil {
				return err
			}
			logger.Info("seeded default policies", "count", seeded)
			return nil
		},
	}
}

func recalcCmd() *cobra.Command {
	var entityID string
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Run one batch balance recalculation and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			h := api.NewHandler(store, logger)
			res, err := api.RunRecalculation(cmd.Context(), store, h.Aggregator, logger, entityID)
			if err != nil {
				return err
			}
			logger.Info("recalculation finished",
				"total", res.Total, "processed", res.Processed, "failed", res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&entityID, "entity", "", "restrict to one entity")
	return cmd
}
