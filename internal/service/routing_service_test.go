package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

func TestMatches(t *testing.T) {
	p := &model.Prospect{Email: "Bob@Example.COM", FullName: "Bob Stone", Company: "Stone Works", Source: "landing_page:spring"}

	tests := []struct {
		field, op, value string
		want             bool
	}{
		{"email", model.OpDomain, "example.com", true},
		{"email", model.OpDomain, "@example.com", true},
		{"email", model.OpDomain, "ample.com", false},
		{"email", model.OpEndsWith, "ample.com", true},
		{"full_name", model.OpStartsWith, "bob", true},
		{"company", model.OpContains, "WORKS", true},
		{"company", model.OpEquals, "stone", false},
		{"source", model.OpEquals, "landing_page:spring", true},
		{"phone", model.OpContains, "0", false},
		{"unknown", model.OpEquals, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.field+"_"+tt.op+"_"+tt.value, func(t *testing.T) {
			rule := &model.RoutingRule{Field: tt.field, Operator: tt.op, Value: tt.value}
			assert.Equal(t, tt.want, service.Matches(rule, p))
		})
	}
}

func TestRoutingValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   service.RoutingRuleInput
	}{
		{"missing name", service.RoutingRuleInput{Field: "email", Operator: model.OpEquals, Value: "x", SetStatus: model.ProspectLost}},
		{"bad field", service.RoutingRuleInput{Name: "r", Field: "city", Operator: model.OpEquals, Value: "x", SetStatus: model.ProspectLost}},
		{"bad operator", service.RoutingRuleInput{Name: "r", Field: "email", Operator: "regex", Value: "x", SetStatus: model.ProspectLost}},
		{"domain on name", service.RoutingRuleInput{Name: "r", Field: "full_name", Operator: model.OpDomain, Value: "x", SetStatus: model.ProspectLost}},
		{"no effect", service.RoutingRuleInput{Name: "r", Field: "email", Operator: model.OpEquals, Value: "x"}},
		{"bad status", service.RoutingRuleInput{Name: "r", Field: "email", Operator: model.OpEquals, Value: "x", SetStatus: "hot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.routing.Create(ctx, e.user, tt.in)
			assert.True(t, appErrors.IsType(err, appErrors.TypeValidation), "got %v", err)
		})
	}
}

func TestRoutingApplyUsesPriority(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inactive := false

	_, err := e.routing.Create(ctx, e.user, service.RoutingRuleInput{Name: "low", Field: "email", Operator: model.OpContains, Value: "@", SetStatus: model.ProspectContacted, Priority: 1})
	require.NoError(t, err)
	high, err := e.routing.Create(ctx, e.user, service.RoutingRuleInput{Name: "high", Field: "company", Operator: model.OpEquals, Value: "acme", SetStatus: model.ProspectQualified, Priority: 10})
	require.NoError(t, err)
	_, err = e.routing.Create(ctx, e.user, service.RoutingRuleInput{Name: "off", Field: "company", Operator: model.OpEquals, Value: "acme", SetStatus: model.ProspectLost, Priority: 99, IsActive: &inactive})
	require.NoError(t, err)

	p := &model.Prospect{UserID: e.user, Email: "a@acme.com", Company: "Acme", Status: model.ProspectNew}
	rule, err := e.routing.Apply(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, high.ID, rule.ID)
	assert.Equal(t, model.ProspectQualified, p.Status)

	p = &model.Prospect{UserID: e.user, FullName: "No Email", Status: model.ProspectNew}
	rule, err = e.routing.Apply(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, rule)
	assert.Equal(t, model.ProspectNew, p.Status)
}
