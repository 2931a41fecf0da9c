package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

var signupFields = []model.FormField{
	{Name: "full_name", Label: "Name", Type: model.FieldText, Required: true},
	{Name: "email", Label: "Email", Type: model.FieldEmail, Required: true},
	{Name: "company", Label: "Company", Type: model.FieldText},
	{Name: "size", Label: "Team size", Type: model.FieldSelect, Options: []string{"1-10", "11-50"}},
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Spring Launch 2026":         "spring-launch-2026",
		"  Événement à Paris!  ":     "evenement-a-paris",
		"--already-slugged--":        "already-slugged",
		"Ça & là":                    "ca-la",
		"!!!":                        "",
		"Crème brûlée / Façade Café": "creme-brulee-facade-cafe",
	}
	for in, want := range tests {
		assert.Equal(t, want, service.Slugify(in), in)
	}
}

func TestValidateFormFields(t *testing.T) {
	assert.NoError(t, service.ValidateFormFields(signupFields, true))
	assert.NoError(t, service.ValidateFormFields(nil, false))

	bad := [][]model.FormField{
		{{Name: "Email", Type: model.FieldEmail}},
		{{Name: "a", Type: model.FieldText}, {Name: "a", Type: model.FieldText}},
		{{Name: "a", Type: "date"}},
		{{Name: "a", Type: model.FieldSelect}},
	}
	for _, fields := range bad {
		assert.Error(t, service.ValidateFormFields(fields, false), "%+v", fields)
	}
	err := service.ValidateFormFields([]model.FormField{{Name: "a", Type: model.FieldText}}, true)
	assert.True(t, appErrors.IsType(err, appErrors.TypeValidation))
}

func TestLandingPageSlugUniqueness(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.pages.Create(ctx, e.user, service.LandingPageInput{Title: "Spring Webinar"})
	require.NoError(t, err)
	assert.Equal(t, "spring-webinar", p.Slug)
	assert.Equal(t, "Submit", p.CTAText)

	_, err = e.pages.Create(ctx, uuid.New(), service.LandingPageInput{Title: "Other", Slug: "Spring webinar"})
	assert.True(t, appErrors.IsType(err, appErrors.TypeConflict))

	_, err = e.pages.Create(ctx, e.user, service.LandingPageInput{Title: "x", Slug: "???"})
	assert.True(t, appErrors.IsType(err, appErrors.TypeValidation))
}

func TestPublishRequiresEmailField(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.pages.Create(ctx, e.user, service.LandingPageInput{
		Title:      "Draft",
		FormFields: []model.FormField{{Name: "full_name", Type: model.FieldText}},
	})
	require.NoError(t, err)
	_, err = e.pages.Publish(ctx, e.user, p.ID)
	assert.True(t, appErrors.IsType(err, appErrors.TypeValidation))

	_, err = e.pages.PublicView(ctx, p.Slug)
	assert.True(t, appErrors.IsNotFound(err), "drafts stay private")
}

func publishedPage(t *testing.T, e *env, groupID *uuid.UUID) *model.LandingPage {
	t.Helper()
	ctx := context.Background()
	p, err := e.pages.Create(ctx, e.user, service.LandingPageInput{
		Title:      "Spring Webinar",
		Headline:   "Join us",
		FormFields: signupFields,
		GroupID:    groupID,
	})
	require.NoError(t, err)
	p, err = e.pages.Publish(ctx, e.user, p.ID)
	require.NoError(t, err)
	require.True(t, p.IsPublished)
	return p
}

func TestPublicViewCountsViews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.brandings.Create(ctx, e.user, service.BrandingInput{Name: "Acme", IsDefault: true})
	require.NoError(t, err)
	p := publishedPage(t, e, nil)

	view, err := e.pages.PublicView(ctx, "Spring-Webinar")
	require.NoError(t, err)
	assert.Equal(t, "Join us", view.Headline)
	require.NotNil(t, view.Branding)
	assert.Equal(t, "Acme", view.Branding.Name)
	assert.Equal(t, 1, e.pageRepo.pages[p.ID].Views)
}

func TestSubmitCreatesProspect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g, err := e.groups.Create(ctx, e.user, service.GroupInput{Name: "Webinar leads"})
	require.NoError(t, err)
	p := publishedPage(t, e, &g.ID)

	prospect, err := e.pages.Submit(ctx, p.Slug, map[string]string{
		"full_name": "Lin Wu",
		"email":     "Lin@Example.com",
		"company":   "Wu Ltd",
		"size":      "11-50",
		"ignored":   "x",
	})
	require.NoError(t, err)

	assert.Equal(t, e.user, prospect.UserID)
	assert.Equal(t, "lin@example.com", prospect.Email)
	assert.Equal(t, "Wu Ltd", prospect.Company)
	assert.Equal(t, "landing_page:spring-webinar", prospect.Source)
	assert.Equal(t, "Team size: 11-50", prospect.Notes)
	assert.Equal(t, []uuid.UUID{g.ID}, prospect.GroupIDs)
	assert.Equal(t, 1, e.pageRepo.pages[p.ID].Submissions)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.FormSubmissions.WithLabelValues("accepted")))
}

func TestSubmitUpdatesExistingProspect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g, err := e.groups.Create(ctx, e.user, service.GroupInput{Name: "Webinar leads"})
	require.NoError(t, err)
	existing, err := e.prospects.Create(ctx, e.user, service.ProspectInput{FullName: "Lin", Email: "lin@example.com"})
	require.NoError(t, err)
	p := publishedPage(t, e, &g.ID)

	prospect, err := e.pages.Submit(ctx, p.Slug, map[string]string{"full_name": "Lin Wu", "email": "lin@example.com", "company": "Wu Ltd"})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, prospect.ID)
	assert.Equal(t, "Lin", prospect.FullName, "known values are kept")
	assert.Equal(t, "Wu Ltd", prospect.Company, "blank values are filled")
	assert.Equal(t, []uuid.UUID{g.ID}, prospect.GroupIDs)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := publishedPage(t, e, nil)

	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing required", map[string]string{"email": "a@example.com"}},
		{"bad email", map[string]string{"full_name": "A", "email": "nope"}},
		{"bad option", map[string]string{"full_name": "A", "email": "a@example.com", "size": "500+"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.pages.Submit(ctx, p.Slug, tt.values)
			assert.True(t, appErrors.IsType(err, appErrors.TypeValidation), "got %v", err)
		})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.FormSubmissions.WithLabelValues("invalid")))
	assert.Zero(t, e.pageRepo.pages[p.ID].Submissions)

	_, err := e.pages.Submit(ctx, "no-such-page", map[string]string{"email": "a@example.com"})
	assert.True(t, appErrors.IsNotFound(err))
}
