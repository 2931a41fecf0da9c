// internal/model/webinar.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	WebinarScheduled = "scheduled"
	WebinarLive      = "live"
	WebinarEnded     = "ended"
)

const (
	InvitationPending  = "pending"
	InvitationSent     = "sent"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

type Webinar struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Status          string     `db:"status" json:"status"`
	MaxAttendees    int        `db:"max_attendees" json:"max_attendees"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (w *Webinar) IsLive() bool { return w.Status == WebinarLive }

type WebinarChatMessage struct {
	ID         uuid.UUID `db:"id" json:"id"`
	WebinarID  uuid.UUID `db:"webinar_id" json:"webinar_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type WebinarInvitation struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	WebinarID   uuid.UUID  `db:"webinar_id" json:"webinar_id"`
	ProspectID  uuid.UUID  `db:"prospect_id" json:"prospect_id"`
	Email       string     `db:"email" json:"email"`
	Status      string     `db:"status" json:"status"`
	InvitedAt   time.Time  `db:"invited_at" json:"invited_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}
