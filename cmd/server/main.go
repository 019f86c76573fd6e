/*
main.go - Application entry point

PURPOSE:
  Starts the meal issuance ledger HTTP server. Wires configuration, logging,
  metrics, the selected store and the router with fx, and shuts down
  gracefully on SIGINT/SIGTERM.

STARTUP SEQUENCE:
  1. Load config (flag -config, mealledger.yml, MEAL_* environment)
  2. Build the zap logger and the Prometheus registry
  3. Open the store backend (memory, sqlite, postgres, redis)
  4. Build the ledger, handler and router
  5. Serve HTTP until stopped

EXAMPLES:
  # SQLite file (default)
  ./server

  # Postgres
  MEAL_STORE_BACKEND=postgres MEAL_STORE_POSTGRES_DSN=postgres://... ./server

  # Redis shared by several server instances
  MEAL_STORE_BACKEND=redis MEAL_STORE_REDIS_ADDR=localhost:6379 ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	_ "time/tzdata"

	"github.com/Krishna78600/Samosa-Man-App/api"
	"github.com/Krishna78600/Samosa-Man-App/clock"
	"github.com/Krishna78600/Samosa-Man-App/config"
	"github.com/Krishna78600/Samosa-Man-App/ledger"
	"github.com/Krishna78600/Samosa-Man-App/ledger/store"
	"github.com/Krishna78600/Samosa-Man-App/logger"
	"github.com/Krishna78600/Samosa-Man-App/store/gormstore"
	"github.com/Krishna78600/Samosa-Man-App/store/redisstore"
	"github.com/Krishna78600/Samosa-Man-App/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	app := fx.New(
		fx.Supply(configFile(*configPath)),
		fx.Provide(
			loadConfig,
			newLogger,
			newRegistry,
			newMetrics,
			newStore,
			newLedger,
			newHandler,
			newRouter,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(runHTTP),
	)
	app.Run()
}

type configFile string

func loadConfig(path configFile) (config.Config, error) {
	return config.Load(string(path))
}

func newLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func newRegistry() (*prometheus.Registry, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, reg
}

func newMetrics(reg *prometheus.Registry) (*ledger.Metrics, error) {
	return ledger.NewMetrics(reg)
}

// =============================================================================
// STORE
// =============================================================================

// backend is the store plus what the server needs from it besides Store.
type backend struct {
	ledger.Store
	pinger api.Pinger
}

func newStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (backend, error) {
	var (
		s   ledger.Store
		err error
	)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		if cfg.IsProduction() {
			log.Warn("memory store in production, issuances are lost on restart and not shared between instances")
		} else {
			log.Info("memory store selected, issuances are lost on restart")
		}
		s = store.NewMemory()
	case config.BackendSQLite:
		s, err = sqlite.New(cfg.Store.SQLitePath, sqlite.WithLogger(log))
	case config.BackendPostgres:
		s, err = gormstore.OpenPostgres(cfg.Store.PostgresDSN, log)
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err = redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		}, log)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return backend{}, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	b := backend{Store: s}
	if p, ok := s.(api.Pinger); ok {
		b.pinger = p
	}
	if c, ok := s.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return c.Close() },
		})
	}
	log.Info("store ready", zap.String("backend", cfg.Store.Backend))
	return b, nil
}

// =============================================================================
// LEDGER AND HTTP
// =============================================================================

func newLedger(cfg config.Config, b backend, log *zap.Logger, metrics *ledger.Metrics) (*ledger.Ledger, error) {
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	prices, err := cfg.ParsedPrices()
	if err != nil {
		return nil, err
	}
	return ledger.New(b.Store, cal,
		ledger.WithLogger(log),
		ledger.WithMetrics(metrics),
		ledger.WithPrices(prices),
		ledger.WithCallTimeout(cfg.Store.CallTimeout),
	), nil
}

func newHandler(cfg config.Config, l *ledger.Ledger, b backend, log *zap.Logger) (*api.Handler, error) {
	labels, err := cfg.CounterLabels()
	if err != nil {
		return nil, err
	}

	h := api.NewHandler(l, clock.Real{}, log)
	h.Pinger = b.pinger
	for _, c := range labels {
		h.Counters = append(h.Counters, api.CounterDTO{ID: int(c.ID), Label: c.Label})
	}
	return h, nil
}

func newRouter(cfg config.Config, h *api.Handler, log *zap.Logger, gatherer prometheus.Gatherer) http.Handler {
	return api.NewRouter(h, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         log,
		Gatherer:       gatherer,
	})
}

func runHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, router http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
