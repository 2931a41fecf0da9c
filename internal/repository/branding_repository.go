package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type BrandingRepositoryInterface interface {
	Create(ctx context.Context, b *model.Branding) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Branding, error)
	GetDefault(ctx context.Context, userID uuid.UUID) (*model.Branding, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.Branding, error)
	Update(ctx context.Context, b *model.Branding) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

type BrandingRepository struct {
	DB *sql.DB
}

const brandingColumns = `id, user_id, name, primary_color, secondary_color, font_family, logo_url, logo_key, is_default, created_at, updated_at`

func scanBranding(row scanner) (*model.Branding, error) {
	var b model.Branding
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.PrimaryColor, &b.SecondaryColor, &b.FontFamily, &b.LogoURL, &b.LogoKey,
		&b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BrandingRepository) Create(ctx context.Context, b *model.Branding) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO brandings (user_id, name, primary_color, secondary_color, font_family, logo_url, logo_key, is_default, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
        RETURNING id`, b.UserID, b.Name, b.PrimaryColor, b.SecondaryColor, b.FontFamily, b.LogoURL, b.LogoKey,
		b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
	if err != nil {
		return translate(err, "branding", b.Name)
	}
	if b.IsDefault {
		return r.SetDefault(ctx, b.UserID, b.ID)
	}
	return nil
}

func (r *BrandingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Branding, error) {
	b, err := scanBranding(r.DB.QueryRowContext(ctx, `SELECT `+brandingColumns+` FROM brandings WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "branding", id)
	}
	return b, nil
}

// GetDefault returns nil, nil when the user has no default branding.
func (r *BrandingRepository) GetDefault(ctx context.Context, userID uuid.UUID) (*model.Branding, error) {
	b, err := scanBranding(r.DB.QueryRowContext(ctx, `SELECT `+brandingColumns+` FROM brandings WHERE user_id=$1 AND is_default`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *BrandingRepository) List(ctx context.Context, userID uuid.UUID) ([]*model.Branding, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+brandingColumns+` FROM brandings WHERE user_id=$1 ORDER BY is_default DESC, name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brandings := []*model.Branding{}
	for rows.Next() {
		b, err := scanBranding(rows)
		if err != nil {
			return nil, err
		}
		brandings = append(brandings, b)
	}
	return brandings, rows.Err()
}

// Update writes everything except is_default, which only SetDefault changes.
func (r *BrandingRepository) Update(ctx context.Context, b *model.Branding) error {
	b.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE brandings
        SET name=$1, primary_color=$2, secondary_color=$3, font_family=$4, logo_url=$5, logo_key=$6, updated_at=$7
        WHERE id=$8`, b.Name, b.PrimaryColor, b.SecondaryColor, b.FontFamily, b.LogoURL, b.LogoKey, b.UpdatedAt, b.ID)
	return affected(res, err, "branding", b.ID)
}

func (r *BrandingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM brandings WHERE id=$1`, id)
	return affected(res, err, "branding", id)
}

// SetDefault clears the previous default and marks id, in one transaction,
// so a user never has two defaults.
func (r *BrandingRepository) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE brandings SET is_default=FALSE, updated_at=NOW() WHERE user_id=$1 AND is_default AND id<>$2`, userID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE brandings SET is_default=TRUE, updated_at=NOW() WHERE id=$1 AND user_id=$2`, id, userID)
	if err := affected(res, err, "branding", id); err != nil {
		return err
	}
	return tx.Commit()
}

var _ BrandingRepositoryInterface = (*BrandingRepository)(nil)
