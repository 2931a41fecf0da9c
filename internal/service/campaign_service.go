// internal/service/campaign_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ProspectRepo repository.ProspectRepositoryInterface
	TemplateRepo repository.EmailTemplateRepositoryInterface
	Brandings    *BrandingService
	Queue        queue.Queue
	Clock        clockwork.Clock
	Logger       *zap.Logger
}

// Result struct for Send
type SendCampaignResult struct {
	CampaignID     uuid.UUID   `json:"campaign_id"`
	MessagesQueued int         `json:"messages_queued"`
	Status         string      `json:"status"`
	RecipientIDs   []uuid.UUID `json:"recipient_ids"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats model.CampaignStats `json:"stats"`
}

type CampaignInput struct {
	Name        string      `json:"name"`
	Subject     string      `json:"subject"`
	Content     string      `json:"content"`
	TemplateID  *uuid.UUID  `json:"template_id"`
	BrandingID  *uuid.UUID  `json:"branding_id"`
	GroupIDs    []uuid.UUID `json:"group_ids"`
	ScheduledAt *time.Time  `json:"scheduled_at"`
}

type PreviewResult struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (s *CampaignService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// fill validates in and copies it onto c, pulling subject and content from
// the template when they are left empty.
func (s *CampaignService) fill(ctx context.Context, userID uuid.UUID, c *model.Campaign, in CampaignInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if in.TemplateID != nil {
		t, err := s.TemplateRepo.GetByID(ctx, *in.TemplateID)
		if err != nil {
			return err
		}
		if err := checkOwner(t.UserID, userID, "email template", *in.TemplateID); err != nil {
			return err
		}
		if strings.TrimSpace(in.Subject) == "" {
			in.Subject = t.Subject
		}
		if strings.TrimSpace(in.Content) == "" {
			in.Content = t.Content
		}
	}
	if in.BrandingID != nil {
		if _, err := s.Brandings.Get(ctx, userID, *in.BrandingID); err != nil {
			return err
		}
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.After(s.now()) {
		return appErrors.Validation("scheduled_at must be in the future")
	}

	c.Name, c.Subject, c.Content = in.Name, strings.TrimSpace(in.Subject), in.Content
	c.TemplateID, c.BrandingID, c.GroupIDs = in.TemplateID, in.BrandingID, in.GroupIDs
	if c.GroupIDs == nil {
		c.GroupIDs = []uuid.UUID{}
	}
	c.ScheduledAt = in.ScheduledAt
	if in.ScheduledAt != nil {
		c.Status = model.CampaignScheduled
	} else {
		c.Status = model.CampaignDraft
	}
	return nil
}

func (s *CampaignService) CreateCampaign(ctx context.Context, userID uuid.UUID, in CampaignInput) (*model.Campaign, error) {
	c := &model.Campaign{UserID: userID}
	if err := s.fill(ctx, userID, c, in); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCampaign fetches a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(c.UserID, userID, "campaign", id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) editable(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error) {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, appErrors.Conflict("campaign in status %s can no longer be edited", c.Status)
	}
	return c, nil
}

func (s *CampaignService) UpdateCampaign(ctx context.Context, userID, id uuid.UUID, in CampaignInput) (*model.Campaign, error) {
	c, err := s.editable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, userID, c, in); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) DeleteCampaign(ctx context.Context, userID, id uuid.UUID) error {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.Status == model.CampaignSending {
		return appErrors.Conflict("a campaign cannot be deleted while it is sending")
	}
	return s.CampaignRepo.Delete(ctx, id)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, f model.CampaignFilter, page model.PageRequest) ([]*model.Campaign, model.Pagination, error) {
	page = page.Normalize()
	items, total, err := s.CampaignRepo.ListCampaigns(ctx, f, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, userID, id uuid.UUID) (*CampaignDetails, error) {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: c, Stats: stats}, nil
}

func (s *CampaignService) ListRecipients(ctx context.Context, userID, id uuid.UUID, status string, page model.PageRequest) ([]*model.CampaignRecipient, model.Pagination, error) {
	if _, err := s.GetCampaign(ctx, userID, id); err != nil {
		return nil, model.Pagination{}, err
	}
	page = page.Normalize()
	items, total, err := s.CampaignRepo.ListRecipients(ctx, id, status, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

func (s *CampaignService) Schedule(ctx context.Context, userID, id uuid.UUID, at time.Time) (*model.Campaign, error) {
	c, err := s.editable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !at.After(s.now()) {
		return nil, appErrors.Validation("scheduled_at must be in the future")
	}
	c.ScheduledAt = &at
	c.Status = model.CampaignScheduled
	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) Unschedule(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error) {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignScheduled {
		return nil, appErrors.Conflict("campaign is not scheduled")
	}
	c.ScheduledAt = nil
	c.Status = model.CampaignDraft
	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// render produces the subject and branded HTML a prospect receives.
func (s *CampaignService) render(c *model.Campaign, b *model.Branding, p *model.Prospect) (string, string, error) {
	vars := ProspectVars(p)
	html, err := Wrap(RenderHTML(c.Content, vars), b)
	if err != nil {
		return "", "", err
	}
	return RenderTemplate(c.Subject, vars), html, nil
}

// RenderPreview renders the campaign for one of the caller's prospects.
func (s *CampaignService) RenderPreview(ctx context.Context, userID, campaignID, prospectID uuid.UUID) (*PreviewResult, error) {
	c, err := s.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	p, err := s.ProspectRepo.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(p.UserID, userID, "prospect", prospectID); err != nil {
		return nil, err
	}
	b, err := s.Brandings.Resolve(ctx, userID, c.BrandingID)
	if err != nil {
		return nil, err
	}
	subject, html, err := s.render(c, b, p)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Subject: subject, HTML: html}, nil
}

// SendCampaign is the send-campaign function. Recipients are the members of
// the campaign's groups, or every prospect when it has none. Recipient rows
// are created idempotently, so sending again only re-queues recipients that
// have not been delivered yet.
func (s *CampaignService) SendCampaign(ctx context.Context, userID, campaignID uuid.UUID) (*SendCampaignResult, error) {
	campaign, err := s.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignScheduled && campaign.Status != model.CampaignSending {
		return nil, appErrors.Conflict("campaign cannot be sent in status: %s", campaign.Status)
	}
	if campaign.Subject == "" || strings.TrimSpace(campaign.Content) == "" {
		return nil, appErrors.Validation("campaign needs a subject and content before sending")
	}

	prospects, err := s.ProspectRepo.ListByGroups(ctx, userID, campaign.GroupIDs)
	if err != nil {
		return nil, err
	}
	recipients := prospects[:0]
	for _, p := range prospects {
		if validEmail(p.Email) {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return nil, appErrors.Validation("campaign has no recipients with an email address")
	}

	branding, err := s.Brandings.Resolve(ctx, userID, campaign.BrandingID)
	if err != nil {
		return nil, err
	}

	// Sending must be visible before the first job can finish.
	if campaign.Status != model.CampaignSending {
		if err := s.CampaignRepo.UpdateStatus(ctx, campaignID, model.CampaignSending); err != nil {
			return nil, err
		}
		campaign.Status = model.CampaignSending
	}

	result := &SendCampaignResult{
		CampaignID:   campaignID,
		Status:       model.CampaignSending,
		RecipientIDs: []uuid.UUID{},
	}

	// Every recipient row exists before the first job is published, so a
	// fast worker cannot finalize the campaign early.
	var pending []uuid.UUID
	for _, p := range recipients {
		// Idempotent create (returns existing if already exists)
		rec, err := s.CampaignRepo.CreateRecipient(ctx, campaignID, p.ID, p.Email)
		if err != nil {
			s.Logger.Warn("failed to create recipient", zap.String("prospect_id", p.ID.String()), zap.Error(err))
			continue
		}
		if rec.Status == model.RecipientSent {
			continue
		}

		if rec.RenderedContent == "" {
			subject, html, err := s.render(campaign, branding, p)
			if err != nil {
				s.Logger.Warn("failed to render message", zap.String("prospect_id", p.ID.String()), zap.Error(err))
				if err := s.CampaignRepo.UpdateRecipientStatus(ctx, rec.ID, model.RecipientFailed, "", err.Error()); err != nil {
					s.Logger.Warn("failed to mark recipient failed", zap.String("recipient_id", rec.ID.String()), zap.Error(err))
				}
				continue
			}
			if err := s.CampaignRepo.UpdateRecipientContent(ctx, rec.ID, subject, html); err != nil {
				s.Logger.Warn("failed to update rendered content", zap.String("recipient_id", rec.ID.String()), zap.Error(err))
				continue
			}
		}
		pending = append(pending, rec.ID)
	}

	for _, id := range pending {
		job := queue.SendJob{CampaignID: campaignID, RecipientID: id}
		if err := s.Queue.Publish(ctx, queue.TopicCampaignSends, job); err != nil {
			s.Logger.Warn("failed to enqueue recipient", zap.String("recipient_id", id.String()), zap.Error(err))
			continue
		}
		result.RecipientIDs = append(result.RecipientIDs, id)
		result.MessagesQueued++
	}

	s.Logger.Info("campaign queued",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("recipients", len(recipients)),
		zap.Int("queued", result.MessagesQueued))

	if result.MessagesQueued == 0 {
		if err := s.Finalize(ctx, campaignID); err != nil {
			return result, err
		}
		if c, err := s.CampaignRepo.GetByID(ctx, campaignID); err == nil {
			result.Status = c.Status
		}
	}
	return result, nil
}

// Finalize closes a sending campaign once no recipient is pending: sent
// when at least one delivery succeeded, failed otherwise.
func (s *CampaignService) Finalize(ctx context.Context, campaignID uuid.UUID) error {
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return err
	}
	if stats.Pending > 0 {
		return nil
	}
	status := model.CampaignFailed
	if stats.Sent > 0 {
		status = model.CampaignSent
	}
	if err := s.CampaignRepo.MarkFinished(ctx, campaignID, status, s.now()); err != nil {
		return err
	}
	s.Logger.Info("campaign finished",
		zap.String("campaign_id", campaignID.String()),
		zap.String("status", status),
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed))
	return nil
}

// SendDue sends every scheduled campaign whose time has come. A campaign
// that cannot be sent is marked failed so it is not retried forever.
func (s *CampaignService) SendDue(ctx context.Context) (int, error) {
	due, err := s.CampaignRepo.ListDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range due {
		if _, err := s.SendCampaign(ctx, c.UserID, c.ID); err != nil {
			s.Logger.Error("scheduled campaign failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			if appErrors.IsType(err, appErrors.TypeValidation) {
				if err := s.CampaignRepo.UpdateStatus(ctx, c.ID, model.CampaignFailed); err != nil {
					s.Logger.Error("failed to mark campaign failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
				}
			}
			continue
		}
		sent++
	}
	return sent, nil
}
