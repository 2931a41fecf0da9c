package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type LandingPageRepositoryInterface interface {
	Create(ctx context.Context, p *model.LandingPage) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.LandingPage, error)
	GetBySlug(ctx context.Context, slug string) (*model.LandingPage, error)
	List(ctx context.Context, userID uuid.UUID, page model.PageRequest) ([]*model.LandingPage, int, error)
	Update(ctx context.Context, p *model.LandingPage) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	IncrementSubmissions(ctx context.Context, id uuid.UUID) error
}

type LandingPageRepository struct {
	DB *sql.DB
}

const landingPageColumns = `id, user_id, title, slug, headline, description, cta_text, form_fields, branding_id, group_id, is_published, views, submissions, created_at, updated_at`

func scanLandingPage(row scanner) (*model.LandingPage, error) {
	var p model.LandingPage
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Slug, &p.Headline, &p.Description, &p.CTAText, &p.FormFields,
		&p.BrandingID, &p.GroupID, &p.IsPublished, &p.Views, &p.Submissions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LandingPageRepository) Create(ctx context.Context, p *model.LandingPage) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO landing_pages (user_id, title, slug, headline, description, cta_text, form_fields, branding_id, group_id, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)
        RETURNING id`, p.UserID, p.Title, p.Slug, p.Headline, p.Description, p.CTAText, p.FormFields,
		p.BrandingID, p.GroupID, p.IsPublished, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	return translate(err, "landing page", p.Slug)
}

func (r *LandingPageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LandingPage, error) {
	p, err := scanLandingPage(r.DB.QueryRowContext(ctx, `SELECT `+landingPageColumns+` FROM landing_pages WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "landing page", id)
	}
	return p, nil
}

func (r *LandingPageRepository) GetBySlug(ctx context.Context, slug string) (*model.LandingPage, error) {
	p, err := scanLandingPage(r.DB.QueryRowContext(ctx, `SELECT `+landingPageColumns+` FROM landing_pages WHERE slug=$1`, slug))
	if err != nil {
		return nil, translate(err, "landing page", slug)
	}
	return p, nil
}

func (r *LandingPageRepository) List(ctx context.Context, userID uuid.UUID, page model.PageRequest) ([]*model.LandingPage, int, error) {
	q := &queryBuilder{}
	q.add("user_id=?", userID)
	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+landingPageColumns+` FROM landing_pages`+q.sql()+` ORDER BY created_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	pages := []*model.LandingPage{}
	for rows.Next() {
		p, err := scanLandingPage(rows)
		if err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM landing_pages`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return pages, total, nil
}

func (r *LandingPageRepository) Update(ctx context.Context, p *model.LandingPage) error {
	p.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE landing_pages
        SET title=$1, slug=$2, headline=$3, description=$4, cta_text=$5, form_fields=$6::jsonb,
            branding_id=$7, group_id=$8, is_published=$9, updated_at=$10
        WHERE id=$11`, p.Title, p.Slug, p.Headline, p.Description, p.CTAText, p.FormFields,
		p.BrandingID, p.GroupID, p.IsPublished, p.UpdatedAt, p.ID)
	return affected(res, err, "landing page", p.ID)
}

func (r *LandingPageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM landing_pages WHERE id=$1`, id)
	return affected(res, err, "landing page", id)
}

func (r *LandingPageRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE landing_pages SET views = views + 1 WHERE id=$1`, id)
	return affected(res, err, "landing page", id)
}

func (r *LandingPageRepository) IncrementSubmissions(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE landing_pages SET submissions = submissions + 1 WHERE id=$1`, id)
	return affected(res, err, "landing page", id)
}

var _ LandingPageRepositoryInterface = (*LandingPageRepository)(nil)
