// internal/model/email_domain.go
package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

const (
	DomainPending  = "pending"
	DomainVerified = "verified"
	DomainFailed   = "failed"
)

// EmailDomain is a sending domain registered with the email provider.
type EmailDomain struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Domain        string     `db:"domain" json:"domain"`
	Status        string     `db:"status" json:"status"`
	ProviderID    string     `db:"provider_id" json:"provider_id"`
	Records       DNSRecords `db:"records" json:"records"`
	VerifiedAt    *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	LastCheckedAt *time.Time `db:"last_checked_at" json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type DNSRecord struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority int    `json:"priority,omitempty"`
	Status   string `json:"status"`
}

type DNSRecords []DNSRecord

func (r DNSRecords) Value() (driver.Value, error) {
	if r == nil {
		r = DNSRecords{}
	}
	return jsonValue([]DNSRecord(r))
}

func (r *DNSRecords) Scan(src any) error { return jsonScan(src, (*[]DNSRecord)(r)) }
