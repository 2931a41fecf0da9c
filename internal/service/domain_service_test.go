package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

func TestNormalizeDomain(t *testing.T) {
	valid := map[string]string{
		"Example.COM":              "example.com",
		" https://mail.example.io/": "mail.example.io",
		"news.example.co.uk.":      "news.example.co.uk",
	}
	for in, want := range valid {
		got, err := service.NormalizeDomain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "localhost", "-bad.com", "exa_mple.com", "example.c", "a..b.com"} {
		_, err := service.NormalizeDomain(in)
		assert.True(t, appErrors.IsType(err, appErrors.TypeValidation), in)
	}
}

func TestVerifyAndCheckDomain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.domains.Verify(ctx, e.user, "Example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.Domain)
	assert.Equal(t, model.DomainPending, d.Status)
	assert.Equal(t, "dom-1", d.ProviderID)
	require.Len(t, d.Records, 1)
	assert.Equal(t, "send.example.com", d.Records[0].Name)

	_, err = e.domains.Verify(ctx, e.user, "example.com")
	assert.True(t, appErrors.IsType(err, appErrors.TypeConflict))

	e.provider.status = "temporary_failure"
	d, err = e.domains.CheckStatus(ctx, e.user, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DomainFailed, d.Status)
	assert.NotNil(t, d.LastCheckedAt)
	assert.Nil(t, d.VerifiedAt)
	assert.Len(t, d.Records, 1, "records kept when the provider omits them")

	e.provider.status = "verified"
	d, err = e.domains.CheckStatus(ctx, e.user, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DomainVerified, d.Status)
	assert.NotNil(t, d.VerifiedAt)

	_, err = e.domains.CheckStatus(ctx, uuid.New(), d.ID)
	assert.True(t, appErrors.IsNotFound(err))

	require.NoError(t, e.domains.Delete(ctx, e.user, d.ID))
	list, err := e.domains.List(ctx, e.user)
	require.NoError(t, err)
	assert.Empty(t, list)
}
