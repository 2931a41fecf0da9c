// Package app assembles repositories, services and backends from config.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/config"
	"github.com/wech4801-eng/mirror-frame-forge/internal/controller"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

// Deps are the backends the services run on.
type Deps struct {
	DB       *sql.DB
	Queue    queue.Queue
	Events   service.EventPublisher
	Store    storage.ObjectStore
	Provider provider.EmailProvider
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	Logger   *zap.Logger
}

// NewServices wires every service onto the Postgres repositories.
func NewServices(d Deps) (controller.Services, error) {
	prospectRepo := &repository.ProspectRepository{DB: d.DB}
	groupRepo := &repository.GroupRepository{DB: d.DB}

	routing := &service.RoutingService{RuleRepo: &repository.RoutingRuleRepository{DB: d.DB}, GroupRepo: groupRepo, Logger: d.Logger}
	brandings := &service.BrandingService{BrandingRepo: &repository.BrandingRepository{DB: d.DB}, Store: d.Store, Logger: d.Logger}
	prospects := &service.ProspectService{ProspectRepo: prospectRepo, GroupRepo: groupRepo, Routing: routing, Metrics: d.Metrics, Logger: d.Logger}

	workflows, err := service.NewWorkflowService(&repository.WorkflowRepository{DB: d.DB}, d.Logger)
	if err != nil {
		return controller.Services{}, fmt.Errorf("failed to load workflow templates: %w", err)
	}

	return controller.Services{
		Prospects: prospects,
		Groups:    &service.GroupService{GroupRepo: groupRepo, Logger: d.Logger},
		Templates: &service.TemplateService{TemplateRepo: &repository.EmailTemplateRepository{DB: d.DB}, Logger: d.Logger},
		Campaigns: &service.CampaignService{
			CampaignRepo: &repository.CampaignRepository{DB: d.DB},
			ProspectRepo: prospectRepo,
			TemplateRepo: &repository.EmailTemplateRepository{DB: d.DB},
			Brandings:    brandings,
			Queue:        d.Queue,
			Clock:        d.Clock,
			Logger:       d.Logger,
		},
		Workflows: workflows,
		Webinars: &service.WebinarService{
			WebinarRepo:  &repository.WebinarRepository{DB: d.DB},
			ProspectRepo: prospectRepo,
			GroupRepo:    groupRepo,
			Events:       d.Events,
			Logger:       d.Logger,
		},
		LandingPages: &service.LandingPageService{
			PageRepo:  &repository.LandingPageRepository{DB: d.DB},
			GroupRepo: groupRepo,
			Prospects: prospects,
			Brandings: brandings,
			Metrics:   d.Metrics,
			Logger:    d.Logger,
		},
		Brandings: brandings,
		Routing:   routing,
		Domains:   &service.DomainService{DomainRepo: &repository.EmailDomainRepository{DB: d.DB}, Provider: d.Provider, Logger: d.Logger},
	}, nil
}

// NewWorker builds the campaign delivery worker on the campaign service's
// repository.
func NewWorker(cfg *config.Config, d Deps, campaigns *service.CampaignService) *service.Worker {
	return service.NewWorker(campaigns.CampaignRepo, campaigns, d.Provider, cfg.EmailFrom, d.Metrics, d.Logger)
}

// OpenQueue dials RabbitMQ when AMQP_URL is set and falls back to the
// in-process queue otherwise. The bool reports whether the queue is
// in-process, in which case the caller must run the worker itself.
func OpenQueue(cfg *config.Config, logger *zap.Logger) (q queue.Queue, inProcess bool, closeFn func() error, err error) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, using the in-memory queue")
		return queue.NewInMemoryQueue(logger), true, func() error { return nil }, nil
	}
	aq, err := queue.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		return nil, false, nil, err
	}
	return aq, false, aq.Close, nil
}

// OpenBus uses Redis pub/sub when REDIS_URL is set, so viewers on any
// instance receive the host's events.
func OpenBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (relay.Bus, func() error, error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, realtime events stay in this process")
		return relay.NewMemoryBus(), func() error { return nil }, nil
	}
	rdb, err := relay.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return relay.NewRedisBus(rdb, logger), rdb.Close, nil
}

func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, uploads are kept in memory")
		return storage.NewMemoryStore(controller.UploadsPath), nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func NewProvider(cfg *config.Config, logger *zap.Logger) provider.EmailProvider {
	if cfg.EmailAPIURL == "" {
		logger.Warn("EMAIL_API_URL not set, emails are only logged")
		return provider.NewLogProvider(logger)
	}
	return provider.NewHTTPProvider(cfg.EmailAPIURL, cfg.EmailAPIKey, logger)
}
