// internal/model/landing_page.go
package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

const (
	FieldText     = "text"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldCheckbox = "checkbox"
)

type LandingPage struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug"`
	Headline    string     `db:"headline" json:"headline"`
	Description string     `db:"description" json:"description"`
	CTAText     string     `db:"cta_text" json:"cta_text"`
	FormFields  FormFields `db:"form_fields" json:"form_fields"`
	BrandingID  *uuid.UUID `db:"branding_id" json:"branding_id,omitempty"`
	GroupID     *uuid.UUID `db:"group_id" json:"group_id,omitempty"`
	IsPublished bool       `db:"is_published" json:"is_published"`
	Views       int        `db:"views" json:"views"`
	Submissions int        `db:"submissions" json:"submissions"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type FormFields []FormField

func (f FormFields) Value() (driver.Value, error) {
	if f == nil {
		f = FormFields{}
	}
	return jsonValue([]FormField(f))
}

func (f *FormFields) Scan(src any) error { return jsonScan(src, (*[]FormField)(f)) }
