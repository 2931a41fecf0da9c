package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

// ProspectRepositoryInterface defines methods used by services
type ProspectRepositoryInterface interface {
	Create(ctx context.Context, p *model.Prospect) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Prospect, error)
	FindByEmail(ctx context.Context, userID uuid.UUID, email string) (*model.Prospect, error)
	List(ctx context.Context, f model.ProspectFilter, page model.PageRequest) ([]*model.Prospect, int, error)
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*model.Prospect, error)
	ListByGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) ([]*model.Prospect, error)
	Update(ctx context.Context, p *model.Prospect) error
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	SetGroups(ctx context.Context, prospectID uuid.UUID, groupIDs []uuid.UUID) error
	AddToGroup(ctx context.Context, prospectID, groupID uuid.UUID) error
}

type ProspectRepository struct {
	DB *sql.DB
}

const prospectColumns = `p.id, p.user_id, p.full_name, p.email, p.phone, p.company, p.status, p.source, p.notes, p.created_at, p.updated_at,
    COALESCE((SELECT array_agg(pg.group_id::text) FROM prospect_groups pg WHERE pg.prospect_id = p.id), '{}')`

func scanProspect(row scanner) (*model.Prospect, error) {
	var p model.Prospect
	var groups pq.StringArray
	if err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Company, &p.Status, &p.Source, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &groups); err != nil {
		return nil, err
	}
	ids, err := parseUUIDs(groups)
	if err != nil {
		return nil, err
	}
	p.GroupIDs = ids
	return &p, nil
}

func scanProspects(rows *sql.Rows) ([]*model.Prospect, error) {
	defer rows.Close()
	prospects := []*model.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

func (r *ProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	query := `
        INSERT INTO prospects (user_id, full_name, email, phone, company, status, source, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query, p.UserID, p.FullName, p.Email, p.Phone, p.Company, p.Status, p.Source, p.Notes, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	return translate(err, "prospect", p.Email)
}

func (r *ProspectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Prospect, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects p WHERE p.id=$1`, id)
	p, err := scanProspect(row)
	if err != nil {
		return nil, translate(err, "prospect", id)
	}
	return p, nil
}

// FindByEmail returns nil, nil when no prospect has the email. An empty
// email never matches: name-only prospects are not deduplicated.
func (r *ProspectRepository) FindByEmail(ctx context.Context, userID uuid.UUID, email string) (*model.Prospect, error) {
	if email == "" {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects p WHERE p.user_id=$1 AND lower(p.email)=lower($2)`, userID, email)
	p, err := scanProspect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ProspectRepository) List(ctx context.Context, f model.ProspectFilter, page model.PageRequest) ([]*model.Prospect, int, error) {
	q := &queryBuilder{}
	q.add("p.user_id=?", f.UserID)
	if f.Search != "" {
		q.add("(p.full_name ILIKE '%' || ? || '%' OR p.email ILIKE '%' || ? || '%' OR p.company ILIKE '%' || ? || '%')", f.Search)
	}
	if f.Status != "" {
		q.add("p.status=?", f.Status)
	}
	if f.GroupID != nil {
		q.add("EXISTS (SELECT 1 FROM prospect_groups pg WHERE pg.prospect_id = p.id AND pg.group_id=?)", *f.GroupID)
	}

	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+prospectColumns+` FROM prospects p`+q.sql()+` ORDER BY p.created_at DESC, p.id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	prospects, err := scanProspects(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM prospects p`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return prospects, total, nil
}

func (r *ProspectRepository) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*model.Prospect, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+prospectColumns+` FROM prospects p WHERE p.user_id=$1 AND p.id::text = ANY($2) ORDER BY p.created_at`, userID, uuidArray(ids))
	if err != nil {
		return nil, err
	}
	return scanProspects(rows)
}

// ListByGroups returns the distinct members of the groups, or every
// prospect of the user when groupIDs is empty.
func (r *ProspectRepository) ListByGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) ([]*model.Prospect, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(groupIDs) == 0 {
		rows, err = r.DB.QueryContext(ctx, `SELECT `+prospectColumns+` FROM prospects p WHERE p.user_id=$1 ORDER BY p.created_at`, userID)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
            SELECT `+prospectColumns+` FROM prospects p
            WHERE p.user_id=$1 AND EXISTS (
                SELECT 1 FROM prospect_groups pg WHERE pg.prospect_id = p.id AND pg.group_id::text = ANY($2)
            )
            ORDER BY p.created_at`, userID, uuidArray(groupIDs))
	}
	if err != nil {
		return nil, err
	}
	return scanProspects(rows)
}

func (r *ProspectRepository) Update(ctx context.Context, p *model.Prospect) error {
	p.UpdatedAt = time.Now()
	query := `
        UPDATE prospects
        SET full_name=$1, email=$2, phone=$3, company=$4, status=$5, source=$6, notes=$7, updated_at=$8
        WHERE id=$9
    `
	res, err := r.DB.ExecContext(ctx, query, p.FullName, p.Email, p.Phone, p.Company, p.Status, p.Source, p.Notes, p.UpdatedAt, p.ID)
	return affected(res, err, "prospect", p.ID)
}

func (r *ProspectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM prospects WHERE id=$1`, id)
	return affected(res, err, "prospect", id)
}

func (r *ProspectRepository) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM prospects WHERE user_id=$1 AND id::text = ANY($2)`, userID, uuidArray(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetGroups replaces the prospect's group memberships.
func (r *ProspectRepository) SetGroups(ctx context.Context, prospectID uuid.UUID, groupIDs []uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prospect_groups WHERE prospect_id=$1`, prospectID); err != nil {
		return err
	}
	for _, gid := range groupIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO prospect_groups (prospect_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, prospectID, gid); err != nil {
			return translate(err, "group membership", gid)
		}
	}
	return tx.Commit()
}

func (r *ProspectRepository) AddToGroup(ctx context.Context, prospectID, groupID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO prospect_groups (prospect_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, prospectID, groupID)
	return translate(err, "group membership", groupID)
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
