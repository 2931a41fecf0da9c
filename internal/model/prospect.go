// internal/model/prospect.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProspectNew       = "new"
	ProspectContacted = "contacted"
	ProspectQualified = "qualified"
	ProspectConverted = "converted"
	ProspectLost      = "lost"
)

var ProspectStatuses = []string{ProspectNew, ProspectContacted, ProspectQualified, ProspectConverted, ProspectLost}

type Prospect struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	FullName  string      `db:"full_name" json:"full_name"`
	Email     string      `db:"email" json:"email"`
	Phone     string      `db:"phone" json:"phone"`
	Company   string      `db:"company" json:"company"`
	Status    string      `db:"status" json:"status"`
	Source    string      `db:"source" json:"source"`
	Notes     string      `db:"notes" json:"notes"`
	GroupIDs  []uuid.UUID `json:"group_ids"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// ProspectFilter narrows ListProspects. Zero values mean "any".
type ProspectFilter struct {
	UserID  uuid.UUID
	Search  string
	Status  string
	GroupID *uuid.UUID
}

// ImportResult summarises a CSV import.
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
