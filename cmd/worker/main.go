// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/app"
	"github.com/wech4801-eng/mirror-frame-forge/internal/config"
	"github.com/wech4801-eng/mirror-frame-forge/internal/db"
	"github.com/wech4801-eng/mirror-frame-forge/internal/logging"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// checkConfig rejects setups where this process would consume nothing.
func checkConfig(cfg *config.Config) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required: without a broker the server delivers campaigns itself")
	}
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := checkConfig(cfg); err != nil {
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

	q, err := queue.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		return err
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: database}
	campaigns := &service.CampaignService{
		CampaignRepo: campaignRepo,
		Queue:        q,
		Clock:        clockwork.NewRealClock(),
		Logger:       logger,
	}
	deps := app.Deps{
		DB:       database,
		Queue:    q,
		Provider: app.NewProvider(cfg, logger),
		Metrics:  metrics.New(metrics.NewRegistry()),
		Clock:    campaigns.Clock,
		Logger:   logger,
	}
	if err := app.NewWorker(cfg, deps, campaigns).Start(q); err != nil {
		return err
	}

	logger.Info("worker running, waiting for messages", zap.String("topic", queue.TopicCampaignSends))
	<-ctx.Done()
	logger.Info("worker stopping")
	return nil
}
