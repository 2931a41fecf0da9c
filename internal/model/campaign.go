// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignSending   = "sending"
	CampaignSent      = "sent"
	CampaignFailed    = "failed"
)

type Campaign struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	Name        string      `db:"name" json:"name"`
	Subject     string      `db:"subject" json:"subject"`
	Content     string      `db:"content" json:"content"`
	TemplateID  *uuid.UUID  `db:"template_id" json:"template_id,omitempty"`
	BrandingID  *uuid.UUID  `db:"branding_id" json:"branding_id,omitempty"`
	GroupIDs    []uuid.UUID `db:"group_ids" json:"group_ids"`
	Status      string      `db:"status" json:"status"`
	ScheduledAt *time.Time  `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt      *time.Time  `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time  `db:"updated_at" json:"updated_at,omitempty"`
}

// Editable reports whether the campaign content may still change.
func (c *Campaign) Editable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// CampaignFilter narrows ListCampaigns.
type CampaignFilter struct {
	UserID uuid.UUID
	Status string
	Search string
}
