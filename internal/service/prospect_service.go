package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/csvdetect"
	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

const (
	SourceManual    = "manual"
	SourceCSVImport = "csv_import"

	// maxImportErrors caps the row errors reported back by Import.
	maxImportErrors = 50
)

type ProspectService struct {
	ProspectRepo repository.ProspectRepositoryInterface
	GroupRepo    repository.GroupRepositoryInterface
	Routing      *RoutingService
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

type ProspectInput struct {
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Company  string      `json:"company"`
	Status   string      `json:"status"`
	Source   string      `json:"source"`
	Notes    string      `json:"notes"`
	GroupIDs []uuid.UUID `json:"group_ids"`
}

func (in *ProspectInput) normalize() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	if in.FullName == "" && in.Email == "" {
		return appErrors.Validation("a name or an email is required")
	}
	if in.Email != "" && !validEmail(in.Email) {
		return appErrors.Validation("invalid email address %q", in.Email)
	}
	if in.Status == "" {
		in.Status = model.ProspectNew
	}
	if !contains(model.ProspectStatuses, in.Status) {
		return appErrors.Validation("status must be one of %s", strings.Join(model.ProspectStatuses, ", "))
	}
	if in.Source == "" {
		in.Source = SourceManual
	}
	return nil
}

func duplicateEmail(err error, email string) error {
	if appErrors.IsType(err, appErrors.TypeConflict) {
		return appErrors.Conflict("a prospect with email %s already exists", email)
	}
	return err
}

func (s *ProspectService) Create(ctx context.Context, userID uuid.UUID, in ProspectInput) (*model.Prospect, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkGroups(ctx, userID, in.GroupIDs); err != nil {
		return nil, err
	}

	p := &model.Prospect{
		UserID:   userID,
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		Company:  in.Company,
		Status:   in.Status,
		Source:   in.Source,
		Notes:    in.Notes,
	}
	routedGroup, err := s.route(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.ProspectRepo.Create(ctx, p); err != nil {
		return nil, duplicateEmail(err, p.Email)
	}

	groups := in.GroupIDs
	if routedGroup != nil && !containsID(groups, *routedGroup) {
		groups = append(groups, *routedGroup)
	}
	if len(groups) > 0 {
		if err := s.ProspectRepo.SetGroups(ctx, p.ID, groups); err != nil {
			return nil, err
		}
		p.GroupIDs = groups
	}
	return p, nil
}

// route applies routing rules to p and returns the group to join, if any.
func (s *ProspectService) route(ctx context.Context, p *model.Prospect) (*uuid.UUID, error) {
	if s.Routing == nil {
		return nil, nil
	}
	rule, err := s.Routing.Apply(ctx, p)
	if err != nil || rule == nil {
		return nil, err
	}
	return rule.GroupID, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *ProspectService) checkGroups(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		g, err := s.GroupRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(g.UserID, userID, "group", id); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProspectService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Prospect, error) {
	p, err := s.ProspectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(p.UserID, userID, "prospect", id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProspectService) List(ctx context.Context, f model.ProspectFilter, page model.PageRequest) ([]*model.Prospect, model.Pagination, error) {
	if f.Status != "" && !contains(model.ProspectStatuses, f.Status) {
		return nil, model.Pagination{}, appErrors.Validation("invalid status filter %q", f.Status)
	}
	page = page.Normalize()
	items, total, err := s.ProspectRepo.List(ctx, f, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return items, model.NewPagination(page, total), nil
}

// Update replaces the prospect's fields. Group memberships change only
// when GroupIDs is non-nil.
func (s *ProspectService) Update(ctx context.Context, userID, id uuid.UUID, in ProspectInput) (*model.Prospect, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = p.Source
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkGroups(ctx, userID, in.GroupIDs); err != nil {
		return nil, err
	}

	p.FullName, p.Email, p.Phone, p.Company = in.FullName, in.Email, in.Phone, in.Company
	p.Status, p.Source, p.Notes = in.Status, in.Source, in.Notes
	if err := s.ProspectRepo.Update(ctx, p); err != nil {
		return nil, duplicateEmail(err, p.Email)
	}
	if in.GroupIDs != nil {
		if err := s.ProspectRepo.SetGroups(ctx, p.ID, in.GroupIDs); err != nil {
			return nil, err
		}
		p.GroupIDs = in.GroupIDs
	}
	return p, nil
}

func (s *ProspectService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.ProspectRepo.Delete(ctx, id)
}

// BulkDelete removes the caller's prospects among ids and reports how many
// were deleted.
func (s *ProspectService) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, appErrors.Validation("no prospect ids given")
	}
	return s.ProspectRepo.BulkDelete(ctx, userID, ids)
}

func (s *ProspectService) SetGroups(ctx context.Context, userID, id uuid.UUID, groupIDs []uuid.UUID) (*model.Prospect, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkGroups(ctx, userID, groupIDs); err != nil {
		return nil, err
	}
	if err := s.ProspectRepo.SetGroups(ctx, id, groupIDs); err != nil {
		return nil, err
	}
	p.GroupIDs = groupIDs
	return p, nil
}

// PreviewImport analyzes an upload without writing anything.
func (s *ProspectService) PreviewImport(raw []byte) (*csvdetect.Result, error) {
	res, err := csvdetect.Analyze(raw)
	if errors.Is(err, csvdetect.ErrEmpty) {
		return nil, appErrors.Validation("the file is empty")
	}
	if err != nil {
		return nil, appErrors.Validation("could not read the file: %v", err)
	}
	return res, nil
}

// Import creates a prospect per CSV row. mapping overrides the detected
// columns. Rows without a valid email and emails that already exist are
// skipped, never overwritten.
func (s *ProspectService) Import(ctx context.Context, userID uuid.UUID, raw []byte, mapping *csvdetect.Mapping, groupID *uuid.UUID) (*model.ImportResult, error) {
	res, err := s.PreviewImport(raw)
	if err != nil {
		return nil, err
	}
	m := res.Mapping
	if mapping != nil {
		m = *mapping
	}
	if err := m.Validate(res.Width); err != nil {
		return nil, appErrors.Validation("invalid column mapping: %v", err)
	}
	if groupID != nil {
		if err := s.checkGroups(ctx, userID, []uuid.UUID{*groupID}); err != nil {
			return nil, err
		}
	}

	result := &model.ImportResult{Total: len(res.Rows)}
	lineOffset := 1
	if res.HasHeader {
		lineOffset = 2
	}
	rowError := func(i int, format string, args ...any) {
		result.Skipped++
		s.Metrics.ProspectImports.WithLabelValues("skipped").Inc()
		if len(result.Errors) < maxImportErrors {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: ", i+lineOffset)+fmt.Sprintf(format, args...))
		}
	}

	seen := make(map[string]bool, len(res.Rows))
	for i, row := range res.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pr := m.Extract(row)
		if !validEmail(pr.Email) {
			rowError(i, "missing or invalid email %q", pr.Email)
			continue
		}
		if seen[pr.Email] {
			rowError(i, "duplicate email %s in file", pr.Email)
			continue
		}
		seen[pr.Email] = true

		existing, err := s.ProspectRepo.FindByEmail(ctx, userID, pr.Email)
		if err != nil {
			return result, err
		}
		if existing != nil {
			rowError(i, "%s already exists", pr.Email)
			continue
		}

		p := &model.Prospect{
			UserID:   userID,
			FullName: pr.FullName,
			Email:    pr.Email,
			Phone:    pr.Phone,
			Company:  pr.Company,
			Status:   model.ProspectNew,
			Source:   SourceCSVImport,
		}
		routedGroup, err := s.route(ctx, p)
		if err != nil {
			return result, err
		}
		if err := s.ProspectRepo.Create(ctx, p); err != nil {
			if appErrors.IsType(err, appErrors.TypeConflict) {
				rowError(i, "%s already exists", pr.Email)
				continue
			}
			return result, err
		}
		for _, gid := range []*uuid.UUID{groupID, routedGroup} {
			if gid == nil {
				continue
			}
			if err := s.ProspectRepo.AddToGroup(ctx, p.ID, *gid); err != nil {
				return result, err
			}
		}
		result.Imported++
		s.Metrics.ProspectImports.WithLabelValues("imported").Inc()
	}

	s.Logger.Info("prospect import finished",
		zap.String("user_id", userID.String()),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
