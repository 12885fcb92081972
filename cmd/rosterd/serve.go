// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosterd/rosterd/internal/config"
	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/httpapi"
	"github.com/rosterd/rosterd/internal/logging"
	"github.com/rosterd/rosterd/internal/notify"
	"github.com/rosterd/rosterd/internal/observability"
	"github.com/rosterd/rosterd/internal/xdg"
	"github.com/rosterd/rosterd/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the servers and dispatcher.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the directory API server",
		Long: `Start the HTTP API server, the observability endpoints, and the
welcome-notification dispatcher.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(configFile), cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, nil)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("http-addr", defaults.HTTPAddr, "API listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("store", defaults.Store, "account store backend (postgres or memory)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string (default: DATABASE_URL env)")
	cmd.Flags().String("redis-url", "", "Redis URL for the welcome queue (empty = in-process delivery)")
	cmd.Flags().String("queue-key", notify.DefaultQueueKey, "Redis list key for the welcome queue")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = deps.DatabaseURLGetter()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("rosterd", version, cfg.LogFormat)

	slog.Info("starting directory server",
		"http_addr", cfg.HTTPAddr,
		"store", cfg.Store,
		"log_format", cfg.LogFormat,
	)

	accounts, cleanupStore, err := deps.StoreFactory(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupStore()

	notifier, dispatcher, cleanupNotify, err := deps.NotifierFactory(cfg)
	if err != nil {
		return err
	}
	defer cleanupNotify()

	hasher := directory.NewArgon2idHasher()

	service, err := directory.NewService(accounts, hasher, notifier)
	if err != nil {
		return err
	}
	service.OnNotifyFailure(observability.RecordNotificationFailure)

	handler, err := httpapi.NewHandler(service, hasher, slog.Default())
	if err != nil {
		return err
	}

	// Observability server is optional.
	var obsSrv ObservabilityServer
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obs := deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool { return true })
		obsErrCh, err = obs.Start()
		if err != nil {
			return err
		}
		obsSrv = obs
		if srv, ok := obs.(*observability.Server); ok {
			handler.OnRegistered(srv.Metrics().RegistrationsTotal.Inc)
			handler.OnRequest(func(route, status string) {
				srv.Metrics().RequestsTotal.WithLabelValues(route, status).Inc()
			})
		}
	}

	if dispatcher != nil {
		dispatcher.OnFailure(observability.RecordNotificationFailure)
		if err := dispatcher.Start(); err != nil {
			return err
		}
	}

	apiSrv := deps.APIServerFactory(cfg.HTTPAddr, handler.Router())
	apiErrCh, err := apiSrv.Start()
	if err != nil {
		return err
	}

	// Block until a signal or a server failure.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		slog.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			errutil.LogError(slog.Default(), "api server failed", err)
		}
	case err := <-obsErrCh:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiSrv.Stop(stopCtx); err != nil {
		errutil.LogError(slog.Default(), "api server stop failed", err)
	}
	if dispatcher != nil {
		if err := dispatcher.Stop(stopCtx); err != nil {
			errutil.LogError(slog.Default(), "dispatcher stop failed", err)
		}
	}
	if obsSrv != nil {
		if err := obsSrv.Stop(stopCtx); err != nil {
			errutil.LogError(slog.Default(), "observability server stop failed", err)
		}
	}

	return nil
}

// resolveConfigFile returns the explicit path when one was given, and
// otherwise falls back to the XDG config file if it exists.
func resolveConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path := xdg.DefaultConfigFile()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// DatabaseURLFromEnv reads the connection string from the environment.
func DatabaseURLFromEnv() string {
	return os.Getenv("DATABASE_URL")
}
