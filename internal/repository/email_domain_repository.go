package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type EmailDomainRepositoryInterface interface {
	Create(ctx context.Context, d *model.EmailDomain) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.EmailDomain, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.EmailDomain, error)
	Update(ctx context.Context, d *model.EmailDomain) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EmailDomainRepository struct {
	DB *sql.DB
}

const emailDomainColumns = `id, user_id, domain, status, provider_id, records, verified_at, last_checked_at, created_at, updated_at`

func scanEmailDomain(row scanner) (*model.EmailDomain, error) {
	var d model.EmailDomain
	err := row.Scan(&d.ID, &d.UserID, &d.Domain, &d.Status, &d.ProviderID, &d.Records, &d.VerifiedAt, &d.LastCheckedAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *EmailDomainRepository) Create(ctx context.Context, d *model.EmailDomain) error {
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO email_domains (user_id, domain, status, provider_id, records, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
        RETURNING id`, d.UserID, d.Domain, d.Status, d.ProviderID, d.Records, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	return translate(err, "email domain", d.Domain)
}

func (r *EmailDomainRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.EmailDomain, error) {
	d, err := scanEmailDomain(r.DB.QueryRowContext(ctx, `SELECT `+emailDomainColumns+` FROM email_domains WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "email domain", id)
	}
	return d, nil
}

func (r *EmailDomainRepository) List(ctx context.Context, userID uuid.UUID) ([]*model.EmailDomain, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+emailDomainColumns+` FROM email_domains WHERE user_id=$1 ORDER BY domain`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	domains := []*model.EmailDomain{}
	for rows.Next() {
		d, err := scanEmailDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (r *EmailDomainRepository) Update(ctx context.Context, d *model.EmailDomain) error {
	d.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE email_domains
        SET status=$1, provider_id=$2, records=$3::jsonb, verified_at=$4, last_checked_at=$5, updated_at=$6
        WHERE id=$7`, d.Status, d.ProviderID, d.Records, d.VerifiedAt, d.LastCheckedAt, d.UpdatedAt, d.ID)
	return affected(res, err, "email domain", d.ID)
}

func (r *EmailDomainRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_domains WHERE id=$1`, id)
	return affected(res, err, "email domain", id)
}

var _ EmailDomainRepositoryInterface = (*EmailDomainRepository)(nil)
