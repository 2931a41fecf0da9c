package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/app"
	"github.com/wech4801-eng/mirror-frame-forge/internal/config"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

func TestLocalFallbacks(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	logger := zap.NewNop()

	q, inProcess, closeQueue, err := app.OpenQueue(cfg, logger)
	require.NoError(t, err)
	assert.True(t, inProcess)
	assert.IsType(t, &queue.InMemoryQueue{}, q)
	assert.NoError(t, closeQueue())

	bus, closeBus, err := app.OpenBus(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &relay.MemoryBus{}, bus)
	assert.NoError(t, closeBus())

	store, err := app.OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, store)

	assert.IsType(t, &provider.LogProvider{}, app.NewProvider(cfg, logger))
	assert.IsType(t, &provider.HTTPProvider{}, app.NewProvider(&config.Config{EmailAPIURL: "https://api.example.com"}, logger))
}

func TestNewServicesWiresEverything(t *testing.T) {
	logger := zap.NewNop()
	m := metrics.NewNop()
	hub := relay.NewHub(relay.NewMemoryBus(), 10, logger, m)
	defer hub.Close()

	services, err := app.NewServices(app.Deps{
		Queue:    queue.NewInMemoryQueue(logger),
		Events:   hub,
		Store:    storage.NewMemoryStore("/uploads"),
		Provider: provider.NewLogProvider(logger),
		Metrics:  m,
		Clock:    clockwork.NewFakeClock(),
		Logger:   logger,
	})
	require.NoError(t, err)

	assert.NotNil(t, services.Prospects.Routing)
	assert.Same(t, services.Brandings, services.Campaigns.Brandings)
	assert.Same(t, services.Prospects, services.LandingPages.Prospects)
	assert.NotEmpty(t, services.Workflows.Templates())
	assert.NotNil(t, services.Webinars.Events)
	assert.NotNil(t, services.Domains.Provider)
}

// recipientRepo keeps the recipients of one campaign in memory. Methods the
// worker does not reach fall through to the nil interface.
type recipientRepo struct {
	repository.CampaignRepositoryInterface

	mu         sync.Mutex
	recipients map[uuid.UUID]*model.CampaignRecipient
	finished   map[uuid.UUID]string
}

func (r *recipientRepo) GetRecipient(_ context.Context, id uuid.UUID) (*model.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *r.recipients[id]
	return &rec, nil
}

func (r *recipientRepo) UpdateRecipientStatus(_ context.Context, id uuid.UUID, status, providerID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.recipients[id]
	rec.Status, rec.ProviderID, rec.LastError = status, providerID, lastError
	return nil
}

func (r *recipientRepo) GetCampaignStats(_ context.Context, campaignID uuid.UUID) (model.CampaignStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats model.CampaignStats
	for _, rec := range r.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		stats.Total++
		switch rec.Status {
		case model.RecipientPending:
			stats.Pending++
		case model.RecipientSent:
			stats.Sent++
		case model.RecipientFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (r *recipientRepo) MarkFinished(_ context.Context, campaignID uuid.UUID, status string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[campaignID] = status
	return nil
}

func TestWorkerDeliversThroughInMemoryQueue(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	m := metrics.NewNop()
	q := queue.NewInMemoryQueue(logger)
	q.Backoff = time.Millisecond

	campaignID := uuid.New()
	repo := &recipientRepo{
		recipients: make(map[uuid.UUID]*model.CampaignRecipient),
		finished:   make(map[uuid.UUID]string),
	}
	var jobs []queue.SendJob
	for _, email := range []string{"ada@example.com", "grace@example.com"} {
		rec := &model.CampaignRecipient{
			ID:              uuid.New(),
			CampaignID:      campaignID,
			Email:           email,
			Status:          model.RecipientPending,
			RenderedSubject: "Spring launch",
			RenderedContent: "<p>Hello</p>",
		}
		repo.recipients[rec.ID] = rec
		jobs = append(jobs, queue.SendJob{CampaignID: campaignID, RecipientID: rec.ID})
	}

	campaigns := &service.CampaignService{
		CampaignRepo: repo,
		Queue:        q,
		Clock:        clockwork.NewFakeClock(),
		Logger:       logger,
	}
	deps := app.Deps{
		Queue:    q,
		Provider: provider.NewLogProvider(logger),
		Metrics:  m,
		Clock:    campaigns.Clock,
		Logger:   logger,
	}
	worker := app.NewWorker(&config.Config{EmailFrom: "news@example.com"}, deps, campaigns)
	assert.Same(t, repo, worker.CampaignRepo)
	require.NoError(t, worker.Start(q))

	for _, job := range jobs {
		require.NoError(t, q.Publish(ctx, queue.TopicCampaignSends, job))
	}
	q.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, rec := range repo.recipients {
		assert.Equal(t, model.RecipientSent, rec.Status, rec.Email)
		assert.NotEmpty(t, rec.ProviderID)
	}
	assert.Equal(t, model.CampaignSent, repo.finished[campaignID])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CampaignSends.WithLabelValues(model.RecipientSent)))
}
