package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type WebinarRepositoryInterface interface {
	Create(ctx context.Context, w *model.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Webinar, error)
	List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Webinar, int, error)
	Update(ctx context.Context, w *model.Webinar) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateChatMessage(ctx context.Context, m *model.WebinarChatMessage) error
	ListChatMessages(ctx context.Context, webinarID uuid.UUID, limit int) ([]*model.WebinarChatMessage, error)

	CreateInvitation(ctx context.Context, inv *model.WebinarInvitation) (bool, error)
	GetInvitation(ctx context.Context, id uuid.UUID) (*model.WebinarInvitation, error)
	ListInvitations(ctx context.Context, webinarID uuid.UUID) ([]*model.WebinarInvitation, error)
	UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status string) error
}

type WebinarRepository struct {
	DB *sql.DB
}

const webinarColumns = `id, user_id, title, description, scheduled_at, duration_minutes, status, max_attendees, started_at, ended_at, created_at, updated_at`

func scanWebinar(row scanner) (*model.Webinar, error) {
	var w model.Webinar
	err := row.Scan(&w.ID, &w.UserID, &w.Title, &w.Description, &w.ScheduledAt, &w.DurationMinutes, &w.Status,
		&w.MaxAttendees, &w.StartedAt, &w.EndedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WebinarRepository) Create(ctx context.Context, w *model.Webinar) error {
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	if w.Status == "" {
		w.Status = model.WebinarScheduled
	}
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO webinars (user_id, title, description, scheduled_at, duration_minutes, status, max_attendees, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`, w.UserID, w.Title, w.Description, w.ScheduledAt, w.DurationMinutes, w.Status, w.MaxAttendees,
		w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
	return translate(err, "webinar", w.Title)
}

func (r *WebinarRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Webinar, error) {
	w, err := scanWebinar(r.DB.QueryRowContext(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "webinar", id)
	}
	return w, nil
}

func (r *WebinarRepository) List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Webinar, int, error) {
	q := &queryBuilder{}
	q.add("user_id=?", userID)
	if status != "" {
		q.add("status=?", status)
	}
	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+webinarColumns+` FROM webinars`+q.sql()+` ORDER BY scheduled_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	webinars := []*model.Webinar{}
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, 0, err
		}
		webinars = append(webinars, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM webinars`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return webinars, total, nil
}

func (r *WebinarRepository) Update(ctx context.Context, w *model.Webinar) error {
	w.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE webinars
        SET title=$1, description=$2, scheduled_at=$3, duration_minutes=$4, status=$5, max_attendees=$6,
            started_at=$7, ended_at=$8, updated_at=$9
        WHERE id=$10`, w.Title, w.Description, w.ScheduledAt, w.DurationMinutes, w.Status, w.MaxAttendees,
		w.StartedAt, w.EndedAt, w.UpdatedAt, w.ID)
	return affected(res, err, "webinar", w.ID)
}

func (r *WebinarRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM webinars WHERE id=$1`, id)
	return affected(res, err, "webinar", id)
}

// ====================== Chat ======================

func (r *WebinarRepository) CreateChatMessage(ctx context.Context, m *model.WebinarChatMessage) error {
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO webinar_chat_messages (webinar_id, sender_name, message)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`, m.WebinarID, m.SenderName, m.Message).Scan(&m.ID, &m.CreatedAt)
	return translate(err, "chat message", m.WebinarID)
}

// ListChatMessages returns the latest limit messages, oldest first.
func (r *WebinarRepository) ListChatMessages(ctx context.Context, webinarID uuid.UUID, limit int) ([]*model.WebinarChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, webinar_id, sender_name, message, created_at FROM (
            SELECT id, webinar_id, sender_name, message, created_at
            FROM webinar_chat_messages WHERE webinar_id=$1
            ORDER BY created_at DESC LIMIT $2
        ) latest ORDER BY created_at`, webinarID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.WebinarChatMessage{}
	for rows.Next() {
		var m model.WebinarChatMessage
		if err := rows.Scan(&m.ID, &m.WebinarID, &m.SenderName, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// ====================== Invitations ======================

// CreateInvitation inserts the invitation unless the prospect is already
// invited. It reports whether a row was created.
func (r *WebinarRepository) CreateInvitation(ctx context.Context, inv *model.WebinarInvitation) (bool, error) {
	if inv.Status == "" {
		inv.Status = model.InvitationPending
	}
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO webinar_invitations (webinar_id, prospect_id, email, status, invited_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (webinar_id, prospect_id) DO NOTHING
        RETURNING id, invited_at`, inv.WebinarID, inv.ProspectID, inv.Email, inv.Status).Scan(&inv.ID, &inv.InvitedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "webinar invitation", inv.ProspectID)
	}
	return true, nil
}

func (r *WebinarRepository) GetInvitation(ctx context.Context, id uuid.UUID) (*model.WebinarInvitation, error) {
	var inv model.WebinarInvitation
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, webinar_id, prospect_id, email, status, invited_at, responded_at
        FROM webinar_invitations WHERE id=$1`, id).Scan(
		&inv.ID, &inv.WebinarID, &inv.ProspectID, &inv.Email, &inv.Status, &inv.InvitedAt, &inv.RespondedAt)
	if err != nil {
		return nil, translate(err, "webinar invitation", id)
	}
	return &inv, nil
}

func (r *WebinarRepository) ListInvitations(ctx context.Context, webinarID uuid.UUID) ([]*model.WebinarInvitation, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, webinar_id, prospect_id, email, status, invited_at, responded_at
        FROM webinar_invitations WHERE webinar_id=$1 ORDER BY invited_at, id`, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := []*model.WebinarInvitation{}
	for rows.Next() {
		var inv model.WebinarInvitation
		if err := rows.Scan(&inv.ID, &inv.WebinarID, &inv.ProspectID, &inv.Email, &inv.Status, &inv.InvitedAt, &inv.RespondedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, &inv)
	}
	return invitations, rows.Err()
}

func (r *WebinarRepository) UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE webinar_invitations
        SET status=$1, responded_at = CASE WHEN $1 IN ('accepted', 'declined') THEN NOW() ELSE responded_at END
        WHERE id=$2`, status, id)
	return affected(res, err, "webinar invitation", id)
}

var _ WebinarRepositoryInterface = (*WebinarRepository)(nil)
