package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	ListCampaigns(ctx context.Context, f model.CampaignFilter, page model.PageRequest) ([]*model.Campaign, int, error)
	ListDue(ctx context.Context, now time.Time) ([]*model.Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID uuid.UUID, status string) error
	MarkFinished(ctx context.Context, campaignID uuid.UUID, status string, sentAt time.Time) error
	Update(ctx context.Context, c *model.Campaign) error
	Create(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Recipients
	CreateRecipient(ctx context.Context, campaignID, prospectID uuid.UUID, email string) (*model.CampaignRecipient, error)
	GetRecipient(ctx context.Context, id uuid.UUID) (*model.CampaignRecipient, error)
	UpdateRecipientContent(ctx context.Context, id uuid.UUID, subject, content string) error
	UpdateRecipientStatus(ctx context.Context, id uuid.UUID, status, providerID, lastError string) error
	ListRecipients(ctx context.Context, campaignID uuid.UUID, status string, page model.PageRequest) ([]*model.CampaignRecipient, int, error)
	GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (model.CampaignStats, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

const campaignColumns = `id, user_id, name, subject, content, template_id, branding_id, group_ids::text[], status, scheduled_at, sent_at, created_at, updated_at`

func scanCampaign(row scanner) (*model.Campaign, error) {
	var c model.Campaign
	var groups pq.StringArray
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Subject, &c.Content, &c.TemplateID, &c.BrandingID, &groups,
		&c.Status, &c.ScheduledAt, &c.SentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.GroupIDs, err = parseUUIDs(groups); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaigns(rows *sql.Rows) ([]*model.Campaign, error) {
	defer rows.Close()
	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (user_id, name, subject, content, template_id, branding_id, group_ids, status, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7::uuid[], $8, $9, $10)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query, c.UserID, c.Name, c.Subject, c.Content, c.TemplateID, c.BrandingID,
		uuidArray(c.GroupIDs), c.Status, c.ScheduledAt, c.CreatedAt).Scan(&c.ID)
	return translate(err, "campaign", c.Name)
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	now := time.Now()
	c.UpdatedAt = &now
	query := `
        UPDATE campaigns
        SET name=$1, subject=$2, content=$3, template_id=$4, branding_id=$5, group_ids=$6::uuid[], status=$7, scheduled_at=$8, updated_at=$9
        WHERE id=$10
    `
	res, err := r.DB.ExecContext(ctx, query, c.Name, c.Subject, c.Content, c.TemplateID, c.BrandingID,
		uuidArray(c.GroupIDs), c.Status, c.ScheduledAt, now, c.ID)
	return affected(res, err, "campaign", c.ID)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID uuid.UUID, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), campaignID)
	return affected(res, err, "campaign", campaignID)
}

// MarkFinished moves a sending campaign to its final status. A campaign
// that already left "sending" is not touched.
func (r *CampaignRepository) MarkFinished(ctx context.Context, campaignID uuid.UUID, status string, sentAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET status=$1, sent_at=$2, updated_at=$2 WHERE id=$3 AND status='sending'`, status, sentAt, campaignID)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "campaign", id)
	}
	return c, nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	return affected(res, err, "campaign", id)
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, f model.CampaignFilter, page model.PageRequest) ([]*model.Campaign, int, error) {
	q := &queryBuilder{}
	q.add("user_id=?", f.UserID)
	if f.Status != "" {
		q.add("status=?", f.Status)
	}
	if f.Search != "" {
		q.add("(name ILIKE '%' || ? || '%' OR subject ILIKE '%' || ? || '%')", f.Search)
	}

	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns`+q.sql()+` ORDER BY created_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	campaigns, err := scanCampaigns(rows)
	if err != nil {
		return nil, 0, err
	}

	// Count total
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// ListDue returns scheduled campaigns whose time has come.
func (r *CampaignRepository) ListDue(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE status='scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at`, now)
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

// ====================== Recipients ======================

const recipientColumns = `id, campaign_id, prospect_id, email, status, rendered_subject, rendered_content, provider_id, last_error, retry_count, sent_at, created_at, updated_at`

func scanRecipient(row scanner) (*model.CampaignRecipient, error) {
	var m model.CampaignRecipient
	err := row.Scan(&m.ID, &m.CampaignID, &m.ProspectID, &m.Email, &m.Status, &m.RenderedSubject, &m.RenderedContent,
		&m.ProviderID, &m.LastError, &m.RetryCount, &m.SentAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateRecipient is idempotent: an existing (campaign, prospect) row is
// returned unchanged.
func (r *CampaignRepository) CreateRecipient(ctx context.Context, campaignID, prospectID uuid.UUID, email string) (*model.CampaignRecipient, error) {
	query := `
        INSERT INTO campaign_recipients (campaign_id, prospect_id, email, status, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, 'pending', 0, NOW(), NOW())
        ON CONFLICT (campaign_id, prospect_id) DO UPDATE SET campaign_id = EXCLUDED.campaign_id
        RETURNING ` + recipientColumns
	m, err := scanRecipient(r.DB.QueryRowContext(ctx, query, campaignID, prospectID, email))
	if err != nil {
		return nil, translate(err, "campaign recipient", prospectID)
	}
	return m, nil
}

func (r *CampaignRepository) GetRecipient(ctx context.Context, id uuid.UUID) (*model.CampaignRecipient, error) {
	m, err := scanRecipient(r.DB.QueryRowContext(ctx, `SELECT `+recipientColumns+` FROM campaign_recipients WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "campaign recipient", id)
	}
	return m, nil
}

func (r *CampaignRepository) UpdateRecipientContent(ctx context.Context, id uuid.UUID, subject, content string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE campaign_recipients SET rendered_subject=$1, rendered_content=$2, updated_at=NOW() WHERE id=$3`, subject, content, id)
	return affected(res, err, "campaign recipient", id)
}

// UpdateRecipientStatus records a delivery attempt. Failures bump
// retry_count; a successful send stamps sent_at.
func (r *CampaignRepository) UpdateRecipientStatus(ctx context.Context, id uuid.UUID, status, providerID, lastError string) error {
	query := `
        UPDATE campaign_recipients
        SET status=$1, provider_id=$2, last_error=$3,
            retry_count = retry_count + CASE WHEN $3 <> '' THEN 1 ELSE 0 END,
            sent_at = CASE WHEN $1 = 'sent' THEN NOW() ELSE sent_at END,
            updated_at=NOW()
        WHERE id=$4
    `
	res, err := r.DB.ExecContext(ctx, query, status, providerID, lastError, id)
	return affected(res, err, "campaign recipient", id)
}

func (r *CampaignRepository) ListRecipients(ctx context.Context, campaignID uuid.UUID, status string, page model.PageRequest) ([]*model.CampaignRecipient, int, error) {
	q := &queryBuilder{}
	q.add("campaign_id=?", campaignID)
	if status != "" {
		q.add("status=?", status)
	}
	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+recipientColumns+` FROM campaign_recipients`+q.sql()+` ORDER BY created_at, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recipients := []*model.CampaignRecipient{}
	for rows.Next() {
		m, err := scanRecipient(rows)
		if err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaign_recipients`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return recipients, total, nil
}

func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (model.CampaignStats, error) {
	var stats model.CampaignStats
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`, campaignID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch status {
		case model.RecipientPending:
			stats.Pending = count
		case model.RecipientSent:
			stats.Sent = count
		case model.RecipientFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
