package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type RoutingRuleRepositoryInterface interface {
	Create(ctx context.Context, rule *model.RoutingRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.RoutingRule, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error)
	Update(ctx context.Context, rule *model.RoutingRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RoutingRuleRepository struct {
	DB *sql.DB
}

const routingRuleColumns = `id, user_id, name, field, operator, value, group_id, set_status, priority, is_active, created_at, updated_at`

func scanRoutingRules(rows *sql.Rows) ([]*model.RoutingRule, error) {
	defer rows.Close()
	rules := []*model.RoutingRule{}
	for rows.Next() {
		rule, err := scanRoutingRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRoutingRule(row scanner) (*model.RoutingRule, error) {
	var rule model.RoutingRule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Field, &rule.Operator, &rule.Value, &rule.GroupID,
		&rule.SetStatus, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RoutingRuleRepository) Create(ctx context.Context, rule *model.RoutingRule) error {
	now := time.Now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO routing_rules (user_id, name, field, operator, value, group_id, set_status, priority, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id`, rule.UserID, rule.Name, rule.Field, rule.Operator, rule.Value, rule.GroupID, rule.SetStatus,
		rule.Priority, rule.IsActive, rule.CreatedAt, rule.UpdatedAt).Scan(&rule.ID)
	return translate(err, "routing rule", rule.Name)
}

func (r *RoutingRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RoutingRule, error) {
	rule, err := scanRoutingRule(r.DB.QueryRowContext(ctx, `SELECT `+routingRuleColumns+` FROM routing_rules WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "routing rule", id)
	}
	return rule, nil
}

func (r *RoutingRuleRepository) List(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+routingRuleColumns+` FROM routing_rules WHERE user_id=$1 ORDER BY priority DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	return scanRoutingRules(rows)
}

// ListActive returns active rules, highest priority first.
func (r *RoutingRuleRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+routingRuleColumns+` FROM routing_rules WHERE user_id=$1 AND is_active ORDER BY priority DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	return scanRoutingRules(rows)
}

func (r *RoutingRuleRepository) Update(ctx context.Context, rule *model.RoutingRule) error {
	rule.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE routing_rules
        SET name=$1, field=$2, operator=$3, value=$4, group_id=$5, set_status=$6, priority=$7, is_active=$8, updated_at=$9
        WHERE id=$10`, rule.Name, rule.Field, rule.Operator, rule.Value, rule.GroupID, rule.SetStatus, rule.Priority,
		rule.IsActive, rule.UpdatedAt, rule.ID)
	return affected(res, err, "routing rule", rule.ID)
}

func (r *RoutingRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM routing_rules WHERE id=$1`, id)
	return affected(res, err, "routing rule", id)
}

var _ RoutingRuleRepositoryInterface = (*RoutingRuleRepository)(nil)
