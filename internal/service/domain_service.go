package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

var domainName = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

type DomainService struct {
	DomainRepo repository.EmailDomainRepositoryInterface
	Provider   provider.EmailProvider
	Logger     *zap.Logger
}

// NormalizeDomain lowercases name, drops a scheme or trailing dot and
// checks the result is a fully qualified host name.
func NormalizeDomain(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(strings.TrimPrefix(name, "https://"), "http://")
	name = strings.TrimSuffix(strings.TrimSuffix(name, "/"), ".")
	if len(name) > 253 || !domainName.MatchString(name) {
		return "", appErrors.Validation("invalid domain name %q", name)
	}
	return name, nil
}

// providerStatus folds the provider's vocabulary into ours.
func providerStatus(s string) string {
	switch strings.ToLower(s) {
	case "verified", "success":
		return model.DomainVerified
	case "failed", "failure", "temporary_failure":
		return model.DomainFailed
	default:
		return model.DomainPending
	}
}

// Verify registers the domain with the provider and stores the DNS records
// the user has to publish.
func (s *DomainService) Verify(ctx context.Context, userID uuid.UUID, name string) (*model.EmailDomain, error) {
	name, err := NormalizeDomain(name)
	if err != nil {
		return nil, err
	}
	remote, err := s.Provider.CreateDomain(ctx, name)
	if err != nil {
		return nil, err
	}

	d := &model.EmailDomain{
		UserID:     userID,
		Domain:     name,
		Status:     model.DomainPending,
		ProviderID: remote.ID,
		Records:    remote.Records,
	}
	if err := s.DomainRepo.Create(ctx, d); err != nil {
		if appErrors.IsType(err, appErrors.TypeConflict) {
			return nil, appErrors.Conflict("domain %s is already registered", name)
		}
		return nil, err
	}
	s.Logger.Info("email domain registered",
		zap.String("domain", name),
		zap.String("provider_id", remote.ID))
	return d, nil
}

// CheckStatus asks the provider for the current verification state.
func (s *DomainService) CheckStatus(ctx context.Context, userID, id uuid.UUID) (*model.EmailDomain, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if d.ProviderID == "" {
		return nil, appErrors.Validation("domain %s was never registered with the provider", d.Domain)
	}
	remote, err := s.Provider.GetDomain(ctx, d.ProviderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d.LastCheckedAt = &now
	d.Status = providerStatus(remote.Status)
	if len(remote.Records) > 0 {
		d.Records = remote.Records
	}
	if d.Status == model.DomainVerified && d.VerifiedAt == nil {
		d.VerifiedAt = &now
	}
	if err := s.DomainRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DomainService) Get(ctx context.Context, userID, id uuid.UUID) (*model.EmailDomain, error) {
	d, err := s.DomainRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(d.UserID, userID, "domain", id); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DomainService) List(ctx context.Context, userID uuid.UUID) ([]*model.EmailDomain, error) {
	return s.DomainRepo.List(ctx, userID)
}

func (s *DomainService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.DomainRepo.Delete(ctx, id)
}
