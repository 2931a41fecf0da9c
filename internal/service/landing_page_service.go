package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

const (
	maxSlugLength = 64
	sourcePage    = "landing_page:"
)

var (
	fieldTypes   = []string{model.FieldText, model.FieldEmail, model.FieldPhone, model.FieldTextarea, model.FieldSelect, model.FieldCheckbox}
	fieldName    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	slugSplitter = regexp.MustCompile(`[^a-z0-9]+`)
)

type LandingPageService struct {
	PageRepo  repository.LandingPageRepositoryInterface
	GroupRepo repository.GroupRepositoryInterface
	Prospects *ProspectService
	Brandings *BrandingService
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type LandingPageInput struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Headline    string            `json:"headline"`
	Description string            `json:"description"`
	CTAText     string            `json:"cta_text"`
	FormFields  []model.FormField `json:"form_fields"`
	BrandingID  *uuid.UUID        `json:"branding_id"`
	GroupID     *uuid.UUID        `json:"group_id"`
}

// PublicPage is what anonymous visitors see.
type PublicPage struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Headline    string            `json:"headline"`
	Description string            `json:"description"`
	CTAText     string            `json:"cta_text"`
	FormFields  []model.FormField `json:"form_fields"`
	Branding    *model.Branding   `json:"branding,omitempty"`
}

// Slugify lowercases s, strips accents and joins the remaining words
// with dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	slug := strings.Trim(slugSplitter.ReplaceAllString(strings.ToLower(plain), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// ValidateFormFields checks names are unique identifiers, types are known
// and select fields carry options. requireEmail is set for published pages.
func ValidateFormFields(fields []model.FormField, requireEmail bool) error {
	seen := make(map[string]bool, len(fields))
	hasEmail := false
	for i, f := range fields {
		if !fieldName.MatchString(f.Name) {
			return appErrors.Validation("form field %d has an invalid name %q", i+1, f.Name)
		}
		if seen[f.Name] {
			return appErrors.Validation("duplicate form field %q", f.Name)
		}
		seen[f.Name] = true
		if !contains(fieldTypes, f.Type) {
			return appErrors.Validation("form field %q has unknown type %q", f.Name, f.Type)
		}
		if f.Type == model.FieldSelect && len(f.Options) == 0 {
			return appErrors.Validation("select field %q needs options", f.Name)
		}
		if f.Type == model.FieldEmail {
			hasEmail = true
		}
	}
	if requireEmail && !hasEmail {
		return appErrors.Validation("a published page needs an email field")
	}
	return nil
}

func (in *LandingPageInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return appErrors.Validation("title is required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		in.Slug = in.Title
	}
	in.Slug = Slugify(in.Slug)
	if in.Slug == "" {
		return appErrors.Validation("slug must contain letters or digits")
	}
	if in.CTAText == "" {
		in.CTAText = "Submit"
	}
	return ValidateFormFields(in.FormFields, false)
}

func (s *LandingPageService) checkRefs(ctx context.Context, userID uuid.UUID, in LandingPageInput) error {
	if in.GroupID != nil {
		g, err := s.GroupRepo.GetByID(ctx, *in.GroupID)
		if err != nil {
			return err
		}
		if err := checkOwner(g.UserID, userID, "group", g.ID); err != nil {
			return err
		}
	}
	if in.BrandingID != nil && s.Brandings != nil {
		if _, err := s.Brandings.Get(ctx, userID, *in.BrandingID); err != nil {
			return err
		}
	}
	return nil
}

func slugTaken(err error, slug string) error {
	if appErrors.IsType(err, appErrors.TypeConflict) {
		return appErrors.Conflict("slug %q is already in use", slug)
	}
	return err
}

func (s *LandingPageService) Create(ctx context.Context, userID uuid.UUID, in LandingPageInput) (*model.LandingPage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, userID, in); err != nil {
		return nil, err
	}
	p := &model.LandingPage{
		UserID:      userID,
		Title:       in.Title,
		Slug:        in.Slug,
		Headline:    in.Headline,
		Description: in.Description,
		CTAText:     in.CTAText,
		FormFields:  in.FormFields,
		BrandingID:  in.BrandingID,
		GroupID:     in.GroupID,
	}
	if err := s.PageRepo.Create(ctx, p); err != nil {
		return nil, slugTaken(err, p.Slug)
	}
	return p, nil
}

func (s *LandingPageService) Get(ctx context.Context, userID, id uuid.UUID) (*model.LandingPage, error) {
	p, err := s.PageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(p.UserID, userID, "landing page", id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *LandingPageService) List(ctx context.Context, userID uuid.UUID, page model.PageRequest) ([]*model.LandingPage, model.Pagination, error) {
	page = page.Normalize()
	items, total, err := s.PageRepo.List(ctx, userID, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

func (s *LandingPageService) Update(ctx context.Context, userID, id uuid.UUID, in LandingPageInput) (*model.LandingPage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.IsPublished {
		if err := ValidateFormFields(in.FormFields, true); err != nil {
			return nil, err
		}
	}
	if err := s.checkRefs(ctx, userID, in); err != nil {
		return nil, err
	}
	p.Title, p.Slug, p.Headline, p.Description, p.CTAText = in.Title, in.Slug, in.Headline, in.Description, in.CTAText
	p.FormFields, p.BrandingID, p.GroupID = in.FormFields, in.BrandingID, in.GroupID
	if err := s.PageRepo.Update(ctx, p); err != nil {
		return nil, slugTaken(err, p.Slug)
	}
	return p, nil
}

func (s *LandingPageService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.PageRepo.Delete(ctx, id)
}

func (s *LandingPageService) Publish(ctx context.Context, userID, id uuid.UUID) (*model.LandingPage, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateFormFields(p.FormFields, true); err != nil {
		return nil, err
	}
	return s.setPublished(ctx, p, true)
}

func (s *LandingPageService) Unpublish(ctx context.Context, userID, id uuid.UUID) (*model.LandingPage, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.setPublished(ctx, p, false)
}

func (s *LandingPageService) setPublished(ctx context.Context, p *model.LandingPage, published bool) (*model.LandingPage, error) {
	if p.IsPublished == published {
		return p, nil
	}
	p.IsPublished = published
	if err := s.PageRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// published loads a page by slug. Unpublished pages are reported as
// missing so drafts stay private.
func (s *LandingPageService) published(ctx context.Context, slug string) (*model.LandingPage, error) {
	p, err := s.PageRepo.GetBySlug(ctx, Slugify(slug))
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		return nil, appErrors.NotFound("landing page", slug)
	}
	return p, nil
}

// PublicView returns a published page and counts the view.
func (s *LandingPageService) PublicView(ctx context.Context, slug string) (*PublicPage, error) {
	p, err := s.published(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.PageRepo.IncrementViews(ctx, p.ID); err != nil {
		s.Logger.Warn("failed to count landing page view", zap.String("slug", p.Slug), zap.Error(err))
	}

	view := &PublicPage{
		Title:       p.Title,
		Slug:        p.Slug,
		Headline:    p.Headline,
		Description: p.Description,
		CTAText:     p.CTAText,
		FormFields:  p.FormFields,
	}
	if s.Brandings != nil {
		b, err := s.Brandings.Resolve(ctx, p.UserID, p.BrandingID)
		if err != nil {
			s.Logger.Warn("failed to resolve landing page branding", zap.String("slug", p.Slug), zap.Error(err))
		}
		view.Branding = b
	}
	return view, nil
}

// Submit validates a form post against the page fields and records the
// visitor as a prospect. An existing prospect with the same email is
// updated in place instead of duplicated.
func (s *LandingPageService) Submit(ctx context.Context, slug string, values map[string]string) (*model.Prospect, error) {
	p, err := s.published(ctx, slug)
	if err != nil {
		return nil, err
	}
	in, err := formToProspect(p, values)
	if err != nil {
		s.countSubmission("invalid")
		return nil, err
	}

	prospect, err := s.upsertProspect(ctx, p, in)
	if err != nil {
		s.countSubmission("error")
		return nil, err
	}
	if err := s.PageRepo.IncrementSubmissions(ctx, p.ID); err != nil {
		s.Logger.Warn("failed to count landing page submission", zap.String("slug", p.Slug), zap.Error(err))
	}
	s.countSubmission("accepted")
	s.Logger.Info("landing page submission",
		zap.String("slug", p.Slug),
		zap.String("prospect_id", prospect.ID.String()))
	return prospect, nil
}

func (s *LandingPageService) upsertProspect(ctx context.Context, p *model.LandingPage, in ProspectInput) (*model.Prospect, error) {
	existing, err := s.Prospects.ProspectRepo.FindByEmail(ctx, p.UserID, in.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if p.GroupID != nil {
			in.GroupIDs = []uuid.UUID{*p.GroupID}
		}
		return s.Prospects.Create(ctx, p.UserID, in)
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&existing.FullName, in.FullName)
	fill(&existing.Phone, in.Phone)
	fill(&existing.Company, in.Company)
	if in.Notes != "" {
		existing.Notes = strings.TrimSpace(existing.Notes + "\n" + in.Notes)
	}
	if err := s.Prospects.ProspectRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	if p.GroupID != nil && !containsID(existing.GroupIDs, *p.GroupID) {
		if err := s.Prospects.ProspectRepo.AddToGroup(ctx, existing.ID, *p.GroupID); err != nil {
			return nil, err
		}
		existing.GroupIDs = append(existing.GroupIDs, *p.GroupID)
	}
	return existing, nil
}

// formToProspect maps posted values onto prospect fields. Well known names
// fill the matching column and everything else lands in the notes.
func formToProspect(p *model.LandingPage, values map[string]string) (ProspectInput, error) {
	in := ProspectInput{Source: sourcePage + p.Slug}
	var notes []string
	for _, f := range p.FormFields {
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				return in, appErrors.Validation("%s is required", fieldLabel(f))
			}
			continue
		}
		switch {
		case f.Type == model.FieldEmail:
			if !validEmail(v) {
				return in, appErrors.Validation("%s must be a valid email address", fieldLabel(f))
			}
			if in.Email == "" {
				in.Email = normalizeEmail(v)
			}
		case f.Type == model.FieldSelect && !contains(f.Options, v):
			return in, appErrors.Validation("%s must be one of %s", fieldLabel(f), strings.Join(f.Options, ", "))
		case f.Type == model.FieldPhone || f.Name == "phone":
			in.Phone = v
		case f.Name == "full_name" || f.Name == "name":
			in.FullName = v
		case f.Name == "first_name":
			in.FullName = strings.TrimSpace(v + " " + in.FullName)
		case f.Name == "last_name":
			in.FullName = strings.TrimSpace(in.FullName + " " + v)
		case f.Name == "company":
			in.Company = v
		default:
			notes = append(notes, fmt.Sprintf("%s: %s", fieldLabel(f), v))
		}
	}
	if in.Email == "" {
		return in, appErrors.Validation("an email address is required")
	}
	in.Notes = strings.Join(notes, "\n")
	return in, nil
}

func fieldLabel(f model.FormField) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func (s *LandingPageService) countSubmission(outcome string) {
	if s.Metrics != nil {
		s.Metrics.FormSubmissions.WithLabelValues(outcome).Inc()
	}
}
