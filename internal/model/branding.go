// internal/model/branding.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Branding struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Name           string    `db:"name" json:"name"`
	PrimaryColor   string    `db:"primary_color" json:"primary_color"`
	SecondaryColor string    `db:"secondary_color" json:"secondary_color"`
	FontFamily     string    `db:"font_family" json:"font_family"`
	LogoURL        string    `db:"logo_url" json:"logo_url"`
	LogoKey        string    `db:"logo_key" json:"-"`
	IsDefault      bool      `db:"is_default" json:"is_default"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
