package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

// Finalizer closes a campaign once its recipients are settled.
type Finalizer interface {
	Finalize(ctx context.Context, campaignID uuid.UUID) error
}

// Worker delivers queued campaign recipients through the email provider.
type Worker struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Campaigns    Finalizer
	Provider     provider.EmailProvider
	From         string
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Constructor
func NewWorker(repo repository.CampaignRepositoryInterface, campaigns Finalizer, p provider.EmailProvider, from string, m *metrics.Metrics, logger *zap.Logger) *Worker {
	return &Worker{
		CampaignRepo: repo,
		Campaigns:    campaigns,
		Provider:     p,
		From:         from,
		Metrics:      m,
		Logger:       logger,
	}
}

// Start subscribes the worker to the campaign_sends topic.
func (w *Worker) Start(q queue.Queue) error {
	return queue.SubscribeCampaignSends(q, w.Logger, w.Handle)
}

// Handle sends one recipient. A failure keeps the recipient pending and is
// returned so the queue retries it; on the final attempt the recipient is
// marked failed instead.
func (w *Worker) Handle(ctx context.Context, job queue.SendJob, final bool) error {
	rec, err := w.CampaignRepo.GetRecipient(ctx, job.RecipientID)
	if appErrors.IsNotFound(err) {
		w.Logger.Warn("recipient not found", zap.String("recipient_id", job.RecipientID.String()))
		return nil // no retry
	}
	if err != nil {
		return err
	}
	if rec.Status != model.RecipientPending {
		return nil
	}

	log := w.Logger.With(
		zap.String("campaign_id", rec.CampaignID.String()),
		zap.String("recipient_id", rec.ID.String()))

	providerID, sendErr := w.Provider.Send(ctx, provider.Message{
		From:    w.From,
		To:      rec.Email,
		Subject: rec.RenderedSubject,
		HTML:    rec.RenderedContent,
		Tags:    map[string]string{"campaign_id": rec.CampaignID.String()},
	})
	if sendErr != nil {
		status := model.RecipientPending
		outcome := "retry"
		if final {
			status, outcome = model.RecipientFailed, model.RecipientFailed
		}
		if err := w.CampaignRepo.UpdateRecipientStatus(ctx, rec.ID, status, "", sendErr.Error()); err != nil {
			log.Error("failed to record send failure", zap.Error(err))
		}
		w.Metrics.CampaignSends.WithLabelValues(outcome).Inc()
		log.Warn("send failed", zap.Bool("final", final), zap.Error(sendErr))
		if final {
			w.finalize(ctx, rec.CampaignID)
		}
		return sendErr // triggers retry in queue
	}

	if err := w.CampaignRepo.UpdateRecipientStatus(ctx, rec.ID, model.RecipientSent, providerID, ""); err != nil {
		log.Error("failed to update recipient status", zap.Error(err))
		return err // retry
	}
	w.Metrics.CampaignSends.WithLabelValues(model.RecipientSent).Inc()
	log.Debug("recipient sent", zap.String("provider_id", providerID))
	w.finalize(ctx, rec.CampaignID)
	return nil
}

func (w *Worker) finalize(ctx context.Context, campaignID uuid.UUID) {
	if err := w.Campaigns.Finalize(ctx, campaignID); err != nil {
		w.Logger.Error("failed to finalize campaign", zap.String("campaign_id", campaignID.String()), zap.Error(err))
	}
}
