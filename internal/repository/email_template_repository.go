package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type EmailTemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error)
	List(ctx context.Context, userID uuid.UUID, category string, page model.PageRequest) ([]*model.EmailTemplate, int, error)
	Update(ctx context.Context, t *model.EmailTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EmailTemplateRepository struct {
	DB *sql.DB
}

const templateColumns = `id, user_id, name, subject, content, category, created_at, updated_at`

func scanTemplate(row scanner) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Content, &t.Category, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *EmailTemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) error {
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO email_templates (user_id, name, subject, content, category, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`, t.UserID, t.Name, t.Subject, t.Content, t.Category, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	return translate(err, "email template", t.Name)
}

func (r *EmailTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error) {
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "email template", id)
	}
	return t, nil
}

func (r *EmailTemplateRepository) List(ctx context.Context, userID uuid.UUID, category string, page model.PageRequest) ([]*model.EmailTemplate, int, error) {
	q := &queryBuilder{}
	q.add("user_id=?", userID)
	if category != "" {
		q.add("category=?", category)
	}
	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates`+q.sql()+` ORDER BY updated_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	templates := []*model.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_templates`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *EmailTemplateRepository) Update(ctx context.Context, t *model.EmailTemplate) error {
	t.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `UPDATE email_templates SET name=$1, subject=$2, content=$3, category=$4, updated_at=$5 WHERE id=$6`,
		t.Name, t.Subject, t.Content, t.Category, t.UpdatedAt, t.ID)
	return affected(res, err, "email template", t.ID)
}

func (r *EmailTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_templates WHERE id=$1`, id)
	return affected(res, err, "email template", id)
}

var _ EmailTemplateRepositoryInterface = (*EmailTemplateRepository)(nil)
