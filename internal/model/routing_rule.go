// internal/model/routing_rule.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OpEquals     = "equals"
	OpContains   = "contains"
	OpStartsWith = "starts_with"
	OpEndsWith   = "ends_with"
	OpDomain     = "domain"
)

// RoutingRule assigns new prospects to a group and/or status when Field
// matches Value under Operator.
type RoutingRule struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Name      string     `db:"name" json:"name"`
	Field     string     `db:"field" json:"field"`
	Operator  string     `db:"operator" json:"operator"`
	Value     string     `db:"value" json:"value"`
	GroupID   *uuid.UUID `db:"group_id" json:"group_id,omitempty"`
	SetStatus string     `db:"set_status" json:"set_status,omitempty"`
	Priority  int        `db:"priority" json:"priority"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
