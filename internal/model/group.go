// internal/model/group.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	Color         string    `db:"color" json:"color"`
	ProspectCount int       `json:"prospect_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
