package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

// env wires every service against in-memory repositories.
type env struct {
	user  uuid.UUID
	clock *clockwork.FakeClock

	prospectRepo *fakeProspectRepo
	groupRepo    *fakeGroupRepo
	ruleRepo     *fakeRuleRepo
	templateRepo *fakeTemplateRepo
	brandingRepo *fakeBrandingRepo
	campaignRepo *fakeCampaignRepo
	workflowRepo *fakeWorkflowRepo
	webinarRepo  *fakeWebinarRepo
	pageRepo     *fakePageRepo
	domainRepo   *fakeDomainRepo

	queue    *recordingQueue
	provider *fakeProvider
	events   *recordingPublisher
	store    *storage.MemoryStore
	metrics  *metrics.Metrics

	prospects *service.ProspectService
	groups    *service.GroupService
	routing   *service.RoutingService
	templates *service.TemplateService
	brandings *service.BrandingService
	campaigns *service.CampaignService
	workflows *service.WorkflowService
	webinars  *service.WebinarService
	pages     *service.LandingPageService
	domains   *service.DomainService
	worker    *service.Worker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	e := &env{
		user:         uuid.New(),
		clock:        clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		prospectRepo: newFakeProspectRepo(),
		ruleRepo:     newFakeRuleRepo(),
		templateRepo: newFakeTemplateRepo(),
		brandingRepo: newFakeBrandingRepo(),
		campaignRepo: newFakeCampaignRepo(),
		workflowRepo: newFakeWorkflowRepo(),
		webinarRepo:  newFakeWebinarRepo(),
		pageRepo:     newFakePageRepo(),
		domainRepo:   newFakeDomainRepo(),
		queue:        &recordingQueue{},
		provider:     &fakeProvider{status: "verified"},
		events:       &recordingPublisher{},
		store:        storage.NewMemoryStore("https://cdn.example.com"),
		metrics:      metrics.NewNop(),
	}
	e.groupRepo = newFakeGroupRepo(e.prospectRepo)

	e.routing = &service.RoutingService{RuleRepo: e.ruleRepo, GroupRepo: e.groupRepo, Logger: logger}
	e.prospects = &service.ProspectService{
		ProspectRepo: e.prospectRepo,
		GroupRepo:    e.groupRepo,
		Routing:      e.routing,
		Metrics:      e.metrics,
		Logger:       logger,
	}
	e.groups = &service.GroupService{GroupRepo: e.groupRepo, Logger: logger}
	e.templates = &service.TemplateService{TemplateRepo: e.templateRepo, Logger: logger}
	e.brandings = &service.BrandingService{BrandingRepo: e.brandingRepo, Store: e.store, Logger: logger}
	e.campaigns = &service.CampaignService{
		CampaignRepo: e.campaignRepo,
		ProspectRepo: e.prospectRepo,
		TemplateRepo: e.templateRepo,
		Brandings:    e.brandings,
		Queue:        e.queue,
		Clock:        e.clock,
		Logger:       logger,
	}
	workflows, err := service.NewWorkflowService(e.workflowRepo, logger)
	require.NoError(t, err)
	e.workflows = workflows
	e.webinars = &service.WebinarService{
		WebinarRepo:  e.webinarRepo,
		ProspectRepo: e.prospectRepo,
		GroupRepo:    e.groupRepo,
		Events:       e.events,
		Logger:       logger,
	}
	e.pages = &service.LandingPageService{
		PageRepo:  e.pageRepo,
		GroupRepo: e.groupRepo,
		Prospects: e.prospects,
		Brandings: e.brandings,
		Metrics:   e.metrics,
		Logger:    logger,
	}
	e.domains = &service.DomainService{DomainRepo: e.domainRepo, Provider: e.provider, Logger: logger}
	e.worker = service.NewWorker(e.campaignRepo, e.campaigns, e.provider, "news@example.com", e.metrics, logger)
	return e
}
