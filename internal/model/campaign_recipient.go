// internal/model/campaign_recipient.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecipientPending = "pending"
	RecipientSent    = "sent"
	RecipientFailed  = "failed"
)

// CampaignRecipient is the per-recipient send status of a campaign.
type CampaignRecipient struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CampaignID      uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	ProspectID      uuid.UUID  `db:"prospect_id" json:"prospect_id"`
	Email           string     `db:"email" json:"email"`
	Status          string     `db:"status" json:"status"` // pending, sent, failed
	RenderedSubject string     `db:"rendered_subject" json:"rendered_subject,omitempty"`
	RenderedContent string     `db:"rendered_content" json:"rendered_content,omitempty"`
	ProviderID      string     `db:"provider_id" json:"provider_id,omitempty"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	RetryCount      int        `db:"retry_count" json:"retry_count"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CampaignStats counts recipients by status.
type CampaignStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}
