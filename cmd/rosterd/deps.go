// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/internal/config"
	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/directory/memory"
	dirpostgres "github.com/rosterd/rosterd/internal/directory/postgres"
	"github.com/rosterd/rosterd/internal/httpapi"
	"github.com/rosterd/rosterd/internal/notify"
	"github.com/rosterd/rosterd/internal/observability"
	"github.com/rosterd/rosterd/internal/store"
)

// ObservabilityServer abstracts the metrics/health server for testing.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
}

// APIServer abstracts the API HTTP server for testing.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
}

// ServeDeps holds injectable dependencies for the serve command. Tests swap
// in fakes so startup and shutdown can be exercised without real backends.
type ServeDeps struct {
	DatabaseURLGetter          func() string
	StoreFactory               func(ctx context.Context, cfg config.Config) (directory.AccountStore, func(), error)
	NotifierFactory            func(cfg config.Config) (directory.WelcomeNotifier, *notify.Dispatcher, func(), error)
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer
	APIServerFactory           func(addr string, handler http.Handler) APIServer
}

// withDefaults fills in production implementations for any nil field.
func (d *ServeDeps) withDefaults() *ServeDeps {
	out := &ServeDeps{}
	if d != nil {
		*out = *d
	}
	if out.DatabaseURLGetter == nil {
		out.DatabaseURLGetter = DatabaseURLFromEnv
	}
	if out.StoreFactory == nil {
		out.StoreFactory = defaultStoreFactory
	}
	if out.NotifierFactory == nil {
		out.NotifierFactory = defaultNotifierFactory
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.APIServerFactory == nil {
		out.APIServerFactory = func(addr string, handler http.Handler) APIServer {
			return httpapi.NewServer(addr, handler)
		}
	}
	return out
}

// defaultStoreFactory connects the configured account store backend.
func defaultStoreFactory(ctx context.Context, cfg config.Config) (directory.AccountStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		slog.Warn("using in-memory account store, data will not survive restart")
		return memory.NewStore(), func() {}, nil
	case config.StorePostgres:
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return dirpostgres.NewAccountRepository(pool), pool.Close, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("store", cfg.Store).
			Errorf("unknown store backend %q", cfg.Store)
	}
}

// defaultNotifierFactory builds the welcome-notification pipeline. With a
// Redis URL configured the pipeline is queue plus dispatcher; without one,
// delivery happens inline on a logging mailer.
func defaultNotifierFactory(cfg config.Config) (directory.WelcomeNotifier, *notify.Dispatcher, func(), error) {
	mailer := &notify.LogMailer{Logger: slog.Default()}

	if cfg.RedisURL == "" {
		return &notify.Direct{Mailer: mailer}, nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, oops.Code("NOTIFY_REDIS_INVALID_URL").Wrap(err)
	}
	client := redis.NewClient(opts)

	queue := notify.NewRedisQueueWithClient(client, cfg.QueueKey)
	dispatcher, err := notify.NewDispatcher(client, cfg.QueueKey, mailer, slog.Default())
	if err != nil {
		_ = client.Close() //nolint:errcheck // construction error takes precedence
		return nil, nil, nil, err
	}

	cleanup := func() {
		//nolint:errcheck // closing on shutdown, nothing to do with the error
		_ = client.Close()
	}
	return queue, dispatcher, cleanup, nil
}
