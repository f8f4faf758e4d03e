// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rostercraft/rostercraft/internal/api"
	"github.com/rostercraft/rostercraft/internal/config"
	"github.com/rostercraft/rostercraft/internal/observability"
	"github.com/rostercraft/rostercraft/internal/store"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tournament API server",
		Long: `Serve the tournament API over HTTP, backed by PostgreSQL.
Metrics and health checks are served on a separate address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	cmd.Flags().String("api-addr", config.DefaultAPIAddr, "API listen address")
	cmd.Flags().Int("api-write-limit", config.DefaultWriteLimit, "write requests allowed per client per minute")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().Duration("database-connect-timeout", config.DefaultConnectTimeout, "how long to retry the initial database connection")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies and
// blocks until ctx ends or a listener fails. If deps is nil, default
// implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseOpener == nil {
		deps.DatabaseOpener = func(ctx context.Context, url string) (Database, error) {
			return store.Open(ctx, url)
		}
	}
	if deps.ServiceFactory == nil {
		deps.ServiceFactory = func(db Database) tournament.Service {
			return store.NewPostgresTournamentService(db.(*pgxpool.Pool))
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	slog.Info("starting rostercraft server",
		"api_addr", cfg.API.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"version", version)

	db, err := connectWithRetry(ctx, deps.DatabaseOpener, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func(ctx context.Context) bool {
			return db.Ping(ctx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	handler := api.NewHandler(deps.ServiceFactory(db),
		api.WithMetrics(metrics),
		api.WithLogger(slog.Default()),
		api.WithWriteLimit(cfg.API.WriteLimit))

	listener, err := net.Listen("tcp", cfg.API.Addr)
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("API_LISTEN_FAILED").With("addr", cfg.API.Addr).Wrap(err)
	}
	apiServer := &http.Server{
		Handler:           otelhttp.NewHandler(handler.Routes(), "rostercraft.api"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	apiErrChan := make(chan error, 1)
	go func() {
		defer close(apiErrChan)
		if serveErr := apiServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrChan <- serveErr
		}
	}()

	cmd.Printf("API listening on %s\n", listener.Addr())
	slog.Info("rostercraft server ready", "api_addr", listener.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err, ok := <-apiErrChan:
		if ok {
			serveErr = oops.Code("API_SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping API server", "error", err)
	}
	stopObservability(obsServer)

	slog.Info("shutdown complete")
	return serveErr
}

// connectWithRetry opens the database, retrying with exponential backoff for
// up to timeout while it comes up.
func connectWithRetry(ctx context.Context, open func(context.Context, string) (Database, error), url string, timeout time.Duration) (Database, error) {
	backoff := retry.WithMaxDuration(timeout, retry.NewExponential(250*time.Millisecond))
	var db Database
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		conn, err := open(ctx, url)
		if err != nil {
			slog.Warn("database not reachable, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return db, nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
