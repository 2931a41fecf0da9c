// internal/service/template_service.go
package service

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

// Placeholders lists the variables a template may use.
var Placeholders = []string{"full_name", "first_name", "last_name", "email", "phone", "company"}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// RenderTemplate replaces {{name}} placeholders with data. Known variables
// with no value render empty; unknown ones are left as written.
func RenderTemplate(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := data[key]; ok {
			return v
		}
		if contains(Placeholders, key) {
			return ""
		}
		return m
	})
}

// RenderHTML is RenderTemplate for HTML bodies: values are escaped so
// prospect data cannot inject markup.
func RenderHTML(template string, data map[string]string) string {
	escaped := make(map[string]string, len(data))
	for k, v := range data {
		escaped[k] = html.EscapeString(v)
	}
	return RenderTemplate(template, escaped)
}

// ProspectVars returns the template variables of p.
func ProspectVars(p *model.Prospect) map[string]string {
	name := strings.TrimSpace(p.FullName)
	first, last := name, ""
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		first, last = name[:i], strings.TrimSpace(name[i+1:])
	}
	return map[string]string{
		"full_name":  name,
		"first_name": first,
		"last_name":  last,
		"email":      p.Email,
		"phone":      p.Phone,
		"company":    p.Company,
	}
}

type TemplateService struct {
	TemplateRepo repository.EmailTemplateRepositoryInterface
	Logger       *zap.Logger
}

type TemplateInput struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (in *TemplateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if in.Subject == "" {
		return appErrors.Validation("subject is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return appErrors.Validation("content is required")
	}
	if in.Category == "" {
		in.Category = "general"
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, userID uuid.UUID, in TemplateInput) (*model.EmailTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &model.EmailTemplate{UserID: userID, Name: in.Name, Subject: in.Subject, Content: in.Content, Category: in.Category}
	if err := s.TemplateRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, userID, id uuid.UUID) (*model.EmailTemplate, error) {
	t, err := s.TemplateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(t.UserID, userID, "email template", id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, userID uuid.UUID, category string, page model.PageRequest) ([]*model.EmailTemplate, model.Pagination, error) {
	page = page.Normalize()
	items, total, err := s.TemplateRepo.List(ctx, userID, category, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

func (s *TemplateService) Update(ctx context.Context, userID, id uuid.UUID, in TemplateInput) (*model.EmailTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.Name, t.Subject, t.Content, t.Category = in.Name, in.Subject, in.Content, in.Category
	if err := s.TemplateRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.TemplateRepo.Delete(ctx, id)
}

// Preview renders a template against a sample prospect.
func (s *TemplateService) Preview(ctx context.Context, userID, id uuid.UUID, sample *model.Prospect) (subject, content string, err error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", "", err
	}
	vars := ProspectVars(sample)
	return RenderTemplate(t.Subject, vars), RenderHTML(t.Content, vars), nil
}
