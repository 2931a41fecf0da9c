// cmd/server/main.go
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

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wech4801-eng/mirror-frame-forge/internal/app"
	"github.com/wech4801-eng/mirror-frame-forge/internal/config"
	"github.com/wech4801-eng/mirror-frame-forge/internal/controller"
	"github.com/wech4801-eng/mirror-frame-forge/internal/db"
	"github.com/wech4801-eng/mirror-frame-forge/internal/handler"
	"github.com/wech4801-eng/mirror-frame-forge/internal/logging"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
	"github.com/wech4801-eng/mirror-frame-forge/internal/scheduler"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// uploadsHandler serves the in-memory store's objects. S3 objects are
// served by the bucket itself.
func uploadsHandler(store storage.ObjectStore) http.Handler {
	if mem, ok := store.(*storage.MemoryStore); ok {
		return mem
	}
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(ctx, database, logger); err != nil {
		return err
	}

	q, inProcess, closeQueue, err := app.OpenQueue(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	bus, closeBus, err := app.OpenBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	hub := relay.NewHub(bus, cfg.RelayMaxViewers, logger, m)
	defer hub.Close()

	deps := app.Deps{
		DB:       database,
		Queue:    q,
		Events:   hub,
		Store:    store,
		Provider: app.NewProvider(cfg, logger),
		Metrics:  m,
		Clock:    clockwork.NewRealClock(),
		Logger:   logger,
	}
	services, err := app.NewServices(deps)
	if err != nil {
		return err
	}

	// Without a broker nothing else consumes the queue.
	if inProcess {
		if err := app.NewWorker(cfg, deps, services.Campaigns).Start(q); err != nil {
			return err
		}
	}

	router := controller.NewRouter(controller.RouterConfig{
		Services:      services,
		Logger:        logger,
		Metrics:       metrics.Handler(reg),
		Realtime:      &handler.RealtimeHandler{Webinars: services.Webinars, Hub: hub, Logger: logger, LiveCheckInterval: time.Second},
		Uploads:       uploadsHandler(store),
		Ready:         func(r *http.Request) error { return database.PingContext(r.Context()) },
		FormRateLimit: cfg.FormRateLimit,
		FormRateBurst: cfg.FormRateBurst,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server running", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.New(services.Campaigns, cfg.SchedulerInterval, deps.Clock, logger).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
