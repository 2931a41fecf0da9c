package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type GroupRepositoryInterface interface {
	Create(ctx context.Context, g *model.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.Group, error)
	Update(ctx context.Context, g *model.Group) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddProspects(ctx context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error)
	RemoveProspects(ctx context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error)
}

type GroupRepository struct {
	DB *sql.DB
}

const groupColumns = `g.id, g.user_id, g.name, g.description, g.color, g.created_at, g.updated_at,
    (SELECT COUNT(*) FROM prospect_groups pg WHERE pg.group_id = g.id)`

func scanGroup(row scanner) (*model.Group, error) {
	var g model.Group
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.Color, &g.CreatedAt, &g.UpdatedAt, &g.ProspectCount); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	now := time.Now()
	g.CreatedAt, g.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO groups (user_id, name, description, color, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`, g.UserID, g.Name, g.Description, g.Color, g.CreatedAt, g.UpdatedAt).Scan(&g.ID)
	return translate(err, "group", g.Name)
}

func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	g, err := scanGroup(r.DB.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups g WHERE g.id=$1`, id))
	if err != nil {
		return nil, translate(err, "group", id)
	}
	return g, nil
}

func (r *GroupRepository) List(ctx context.Context, userID uuid.UUID) ([]*model.Group, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups g WHERE g.user_id=$1 ORDER BY g.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*model.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) Update(ctx context.Context, g *model.Group) error {
	g.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `UPDATE groups SET name=$1, description=$2, color=$3, updated_at=$4 WHERE id=$5`,
		g.Name, g.Description, g.Color, g.UpdatedAt, g.ID)
	return affected(res, err, "group", g.ID)
}

func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, id)
	return affected(res, err, "group", id)
}

// AddProspects links the prospects owned by the group's user; ids of other
// users are ignored.
func (r *GroupRepository) AddProspects(ctx context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO prospect_groups (prospect_id, group_id)
        SELECT p.id, g.id FROM prospects p JOIN groups g ON g.user_id = p.user_id
        WHERE g.id=$1 AND p.id::text = ANY($2)
        ON CONFLICT DO NOTHING`, groupID, uuidArray(prospectIDs))
	if err != nil {
		return 0, translate(err, "group membership", groupID)
	}
	return res.RowsAffected()
}

func (r *GroupRepository) RemoveProspects(ctx context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM prospect_groups WHERE group_id=$1 AND prospect_id::text = ANY($2)`, groupID, uuidArray(prospectIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ GroupRepositoryInterface = (*GroupRepository)(nil)
