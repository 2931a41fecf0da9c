package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

const (
	defaultWebinarDuration = 60
	defaultChatHistory     = 100
	maxChatHistory         = 500
)

// EventPublisher pushes realtime events to a webinar topic. *relay.Hub
// implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev relay.Event) error
}

type WebinarService struct {
	WebinarRepo  repository.WebinarRepositoryInterface
	ProspectRepo repository.ProspectRepositoryInterface
	GroupRepo    repository.GroupRepositoryInterface
	Events       EventPublisher
	Logger       *zap.Logger
}

type WebinarInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxAttendees    int       `json:"max_attendees"`
}

type InviteInput struct {
	ProspectIDs []uuid.UUID `json:"prospect_ids"`
	GroupID     *uuid.UUID  `json:"group_id"`
}

type InviteResult struct {
	Invited int `json:"invited"`
	Skipped int `json:"skipped"`
}

func (in *WebinarInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return appErrors.Validation("title is required")
	}
	if in.ScheduledAt.IsZero() {
		return appErrors.Validation("scheduled_at is required")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultWebinarDuration
	}
	if in.DurationMinutes < 0 || in.MaxAttendees < 0 {
		return appErrors.Validation("duration_minutes and max_attendees must not be negative")
	}
	return nil
}

func (s *WebinarService) Create(ctx context.Context, userID uuid.UUID, in WebinarInput) (*model.Webinar, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w := &model.Webinar{
		UserID:          userID,
		Title:           in.Title,
		Description:     in.Description,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		MaxAttendees:    in.MaxAttendees,
		Status:          model.WebinarScheduled,
	}
	if err := s.WebinarRepo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WebinarService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Webinar, error) {
	w, err := s.WebinarRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(w.UserID, userID, "webinar", id); err != nil {
		return nil, err
	}
	return w, nil
}

// Lookup returns a webinar without an ownership check, for viewers.
func (s *WebinarService) Lookup(ctx context.Context, id uuid.UUID) (*model.Webinar, error) {
	return s.WebinarRepo.GetByID(ctx, id)
}

func (s *WebinarService) List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Webinar, model.Pagination, error) {
	page = page.Normalize()
	items, total, err := s.WebinarRepo.List(ctx, userID, status, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

// Update edits a webinar that has not ended yet.
func (s *WebinarService) Update(ctx context.Context, userID, id uuid.UUID, in WebinarInput) (*model.Webinar, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if w.Status == model.WebinarEnded {
		return nil, appErrors.Conflict("webinar %s has ended", id)
	}
	w.Title, w.Description, w.ScheduledAt = in.Title, in.Description, in.ScheduledAt
	w.DurationMinutes, w.MaxAttendees = in.DurationMinutes, in.MaxAttendees
	if err := s.WebinarRepo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WebinarService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if w.IsLive() {
		return appErrors.Conflict("webinar %s is live", id)
	}
	return s.WebinarRepo.Delete(ctx, id)
}

// Start moves a scheduled webinar to live and tells connected viewers.
func (s *WebinarService) Start(ctx context.Context, userID, id uuid.UUID) (*model.Webinar, error) {
	return s.transition(ctx, userID, id, model.WebinarScheduled, model.WebinarLive, relay.EventStreamStarted)
}

// End moves a live webinar to ended.
func (s *WebinarService) End(ctx context.Context, userID, id uuid.UUID) (*model.Webinar, error) {
	return s.transition(ctx, userID, id, model.WebinarLive, model.WebinarEnded, relay.EventStreamEnded)
}

func (s *WebinarService) transition(ctx context.Context, userID, id uuid.UUID, from, to string, event relay.EventType) (*model.Webinar, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if w.Status != from {
		return nil, appErrors.Conflict("webinar %s is %s, expected %s", id, w.Status, from)
	}
	now := time.Now().UTC()
	w.Status = to
	if to == model.WebinarLive {
		w.StartedAt = &now
	} else {
		w.EndedAt = &now
	}
	if err := s.WebinarRepo.Update(ctx, w); err != nil {
		return nil, err
	}
	s.publish(ctx, event, id, "host", nil)
	return w, nil
}

// publish is best effort: the state change is already stored.
func (s *WebinarService) publish(ctx context.Context, t relay.EventType, webinarID uuid.UUID, sender string, payload any) {
	if s.Events == nil {
		return
	}
	ev, err := relay.NewEvent(t, webinarID, sender, payload)
	if err == nil {
		err = s.Events.Publish(ctx, ev)
	}
	if err != nil {
		s.Logger.Warn("failed to publish webinar event",
			zap.String("webinar_id", webinarID.String()),
			zap.String("type", string(t)),
			zap.Error(err))
	}
}

// Invite creates one invitation per prospect. Prospects already invited
// are counted as skipped.
func (s *WebinarService) Invite(ctx context.Context, userID, id uuid.UUID, in InviteInput) (*InviteResult, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if w.Status == model.WebinarEnded {
		return nil, appErrors.Conflict("webinar %s has ended", id)
	}

	var prospects []*model.Prospect
	switch {
	case in.GroupID != nil:
		g, err := s.GroupRepo.GetByID(ctx, *in.GroupID)
		if err != nil {
			return nil, err
		}
		if err := checkOwner(g.UserID, userID, "group", g.ID); err != nil {
			return nil, err
		}
		prospects, err = s.ProspectRepo.ListByGroups(ctx, userID, []uuid.UUID{g.ID})
		if err != nil {
			return nil, err
		}
	case len(in.ProspectIDs) > 0:
		prospects, err = s.ProspectRepo.ListByIDs(ctx, userID, in.ProspectIDs)
		if err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Validation("prospect_ids or group_id is required")
	}

	res := &InviteResult{}
	for _, p := range prospects {
		if p.Email == "" {
			res.Skipped++
			continue
		}
		created, err := s.WebinarRepo.CreateInvitation(ctx, &model.WebinarInvitation{
			WebinarID:  id,
			ProspectID: p.ID,
			Email:      p.Email,
			Status:     model.InvitationPending,
		})
		if err != nil {
			return nil, err
		}
		if created {
			res.Invited++
		} else {
			res.Skipped++
		}
	}
	s.Logger.Info("webinar invitations created",
		zap.String("webinar_id", id.String()),
		zap.Int("invited", res.Invited),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *WebinarService) ListInvitations(ctx context.Context, userID, id uuid.UUID) ([]*model.WebinarInvitation, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.WebinarRepo.ListInvitations(ctx, id)
}

// RespondInvitation records an accept or decline. It is public: the
// invitation id is the credential.
func (s *WebinarService) RespondInvitation(ctx context.Context, invitationID uuid.UUID, status string) (*model.WebinarInvitation, error) {
	if status != model.InvitationAccepted && status != model.InvitationDeclined {
		return nil, appErrors.Validation("status must be %s or %s", model.InvitationAccepted, model.InvitationDeclined)
	}
	if _, err := s.WebinarRepo.GetInvitation(ctx, invitationID); err != nil {
		return nil, err
	}
	if err := s.WebinarRepo.UpdateInvitationStatus(ctx, invitationID, status); err != nil {
		return nil, err
	}
	return s.WebinarRepo.GetInvitation(ctx, invitationID)
}

// PostChat stores a chat line on a live webinar and broadcasts it. Viewers
// are not authenticated, so ownership is not checked here.
func (s *WebinarService) PostChat(ctx context.Context, webinarID uuid.UUID, senderName, message string) (*model.WebinarChatMessage, error) {
	senderName = strings.TrimSpace(senderName)
	message = strings.TrimSpace(message)
	if senderName == "" {
		senderName = "Anonymous"
	}
	if message == "" {
		return nil, appErrors.Validation("message is required")
	}
	if utf8.RuneCountInString(message) > relay.MaxChatRunes {
		return nil, appErrors.Validation("message exceeds %d characters", relay.MaxChatRunes)
	}

	w, err := s.WebinarRepo.GetByID(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	if !w.IsLive() {
		return nil, appErrors.Conflict("webinar %s is not live", webinarID)
	}

	m := &model.WebinarChatMessage{WebinarID: webinarID, SenderName: senderName, Message: message}
	if err := s.WebinarRepo.CreateChatMessage(ctx, m); err != nil {
		return nil, err
	}
	s.publish(ctx, relay.EventChat, webinarID, senderName, relay.ChatPayload{
		ID:         m.ID,
		SenderName: m.SenderName,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	})
	return m, nil
}

// ListChat returns the latest messages in posting order.
func (s *WebinarService) ListChat(ctx context.Context, webinarID uuid.UUID, limit int) ([]*model.WebinarChatMessage, error) {
	if limit <= 0 {
		limit = defaultChatHistory
	}
	if limit > maxChatHistory {
		limit = maxChatHistory
	}
	if _, err := s.WebinarRepo.GetByID(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.WebinarRepo.ListChatMessages(ctx, webinarID, limit)
}
