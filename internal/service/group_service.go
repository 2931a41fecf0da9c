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

const defaultGroupColor = "#6366f1"

type GroupService struct {
	GroupRepo repository.GroupRepositoryInterface
	Logger    *zap.Logger
}

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (in *GroupInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if in.Color == "" {
		in.Color = defaultGroupColor
	}
	if !hexColor.MatchString(in.Color) {
		return appErrors.Validation("color must be a #rrggbb hex value")
	}
	return nil
}

func (s *GroupService) Create(ctx context.Context, userID uuid.UUID, in GroupInput) (*model.Group, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	g := &model.Group{UserID: userID, Name: in.Name, Description: in.Description, Color: in.Color}
	if err := s.GroupRepo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Group, error) {
	g, err := s.GroupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(g.UserID, userID, "group", id); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context, userID uuid.UUID) ([]*model.Group, error) {
	return s.GroupRepo.List(ctx, userID)
}

func (s *GroupService) Update(ctx context.Context, userID, id uuid.UUID, in GroupInput) (*model.Group, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	g.Name, g.Description, g.Color = in.Name, in.Description, in.Color
	if err := s.GroupRepo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.GroupRepo.Delete(ctx, id)
}

// AddMembers links prospects to the group. Ids belonging to other users
// are ignored; the count of new memberships is returned.
func (s *GroupService) AddMembers(ctx context.Context, userID, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	if len(prospectIDs) == 0 {
		return 0, appErrors.Validation("no prospect ids given")
	}
	if _, err := s.Get(ctx, userID, groupID); err != nil {
		return 0, err
	}
	return s.GroupRepo.AddProspects(ctx, groupID, prospectIDs)
}

func (s *GroupService) RemoveMembers(ctx context.Context, userID, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	if len(prospectIDs) == 0 {
		return 0, appErrors.Validation("no prospect ids given")
	}
	if _, err := s.Get(ctx, userID, groupID); err != nil {
		return 0, err
	}
	return s.GroupRepo.RemoveProspects(ctx, groupID, prospectIDs)
}
