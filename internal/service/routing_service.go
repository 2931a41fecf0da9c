package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

var (
	routingFields    = []string{"email", "full_name", "company", "phone", "source"}
	routingOperators = []string{model.OpEquals, model.OpContains, model.OpStartsWith, model.OpEndsWith, model.OpDomain}
)

// RoutingService assigns incoming prospects to groups and statuses.
type RoutingService struct {
	RuleRepo  repository.RoutingRuleRepositoryInterface
	GroupRepo repository.GroupRepositoryInterface
	Logger    *zap.Logger
}

type RoutingRuleInput struct {
	Name      string     `json:"name"`
	Field     string     `json:"field"`
	Operator  string     `json:"operator"`
	Value     string     `json:"value"`
	GroupID   *uuid.UUID `json:"group_id"`
	SetStatus string     `json:"set_status"`
	Priority  int        `json:"priority"`
	IsActive  *bool      `json:"is_active"`
}

func (s *RoutingService) validate(ctx context.Context, userID uuid.UUID, in *RoutingRuleInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Value = strings.TrimSpace(in.Value)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if !contains(routingFields, in.Field) {
		return appErrors.Validation("field must be one of %s", strings.Join(routingFields, ", "))
	}
	if !contains(routingOperators, in.Operator) {
		return appErrors.Validation("operator must be one of %s", strings.Join(routingOperators, ", "))
	}
	if in.Operator == model.OpDomain && in.Field != "email" {
		return appErrors.Validation("the domain operator only applies to email")
	}
	if in.Value == "" {
		return appErrors.Validation("value is required")
	}
	if in.GroupID == nil && in.SetStatus == "" {
		return appErrors.Validation("a rule must set a group or a status")
	}
	if in.SetStatus != "" && !contains(model.ProspectStatuses, in.SetStatus) {
		return appErrors.Validation("invalid status %q", in.SetStatus)
	}
	if in.GroupID != nil {
		g, err := s.GroupRepo.GetByID(ctx, *in.GroupID)
		if err != nil {
			return err
		}
		if err := checkOwner(g.UserID, userID, "group", *in.GroupID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RoutingService) Create(ctx context.Context, userID uuid.UUID, in RoutingRuleInput) (*model.RoutingRule, error) {
	if err := s.validate(ctx, userID, &in); err != nil {
		return nil, err
	}
	rule := &model.RoutingRule{UserID: userID, IsActive: true}
	apply(rule, in)
	if err := s.RuleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func apply(rule *model.RoutingRule, in RoutingRuleInput) {
	rule.Name, rule.Field, rule.Operator, rule.Value = in.Name, in.Field, in.Operator, in.Value
	rule.GroupID, rule.SetStatus, rule.Priority = in.GroupID, in.SetStatus, in.Priority
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
}

func (s *RoutingService) Get(ctx context.Context, userID, id uuid.UUID) (*model.RoutingRule, error) {
	rule, err := s.RuleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(rule.UserID, userID, "routing rule", id); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RoutingService) List(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error) {
	return s.RuleRepo.List(ctx, userID)
}

func (s *RoutingService) Update(ctx context.Context, userID, id uuid.UUID, in RoutingRuleInput) (*model.RoutingRule, error) {
	rule, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, userID, &in); err != nil {
		return nil, err
	}
	apply(rule, in)
	if err := s.RuleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RoutingService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.RuleRepo.Delete(ctx, id)
}

// Apply evaluates the user's active rules in priority order. The first
// match sets p.Status when the rule carries one and returns the rule's
// group, which may be nil.
func (s *RoutingService) Apply(ctx context.Context, p *model.Prospect) (*model.RoutingRule, error) {
	rules, err := s.RuleRepo.ListActive(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if !Matches(rule, p) {
			continue
		}
		if rule.SetStatus != "" {
			p.Status = rule.SetStatus
		}
		s.Logger.Debug("routing rule matched",
			zap.String("rule_id", rule.ID.String()),
			zap.String("prospect_email", p.Email))
		return rule, nil
	}
	return nil, nil
}

// Matches reports whether rule selects p. Comparisons ignore case.
func Matches(rule *model.RoutingRule, p *model.Prospect) bool {
	var field string
	switch rule.Field {
	case "email":
		field = p.Email
	case "full_name":
		field = p.FullName
	case "company":
		field = p.Company
	case "phone":
		field = p.Phone
	case "source":
		field = p.Source
	default:
		return false
	}
	field = strings.ToLower(strings.TrimSpace(field))
	value := strings.ToLower(strings.TrimSpace(rule.Value))
	if field == "" {
		return false
	}

	switch rule.Operator {
	case model.OpEquals:
		return field == value
	case model.OpContains:
		return strings.Contains(field, value)
	case model.OpStartsWith:
		return strings.HasPrefix(field, value)
	case model.OpEndsWith:
		return strings.HasSuffix(field, value)
	case model.OpDomain:
		at := strings.LastIndex(field, "@")
		return at >= 0 && field[at+1:] == strings.TrimPrefix(value, "@")
	default:
		return false
	}
}
