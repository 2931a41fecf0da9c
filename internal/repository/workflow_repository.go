package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type WorkflowRepositoryInterface interface {
	Create(ctx context.Context, w *model.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
	List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Workflow, int, error)
	Update(ctx context.Context, w *model.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type WorkflowRepository struct {
	DB *sql.DB
}

const workflowColumns = `id, user_id, name, description, status, trigger_type, nodes, edges, created_at, updated_at`

func scanWorkflow(row scanner) (*model.Workflow, error) {
	var w model.Workflow
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Description, &w.Status, &w.TriggerType, &w.Nodes, &w.Edges, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkflowRepository) Create(ctx context.Context, w *model.Workflow) error {
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO workflows (user_id, name, description, status, trigger_type, nodes, edges, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9)
        RETURNING id`, w.UserID, w.Name, w.Description, w.Status, w.TriggerType, w.Nodes, w.Edges, w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
	return translate(err, "workflow", w.Name)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	w, err := scanWorkflow(r.DB.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "workflow", id)
	}
	return w, nil
}

func (r *WorkflowRepository) List(ctx context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Workflow, int, error) {
	q := &queryBuilder{}
	q.add("user_id=?", userID)
	if status != "" {
		q.add("status=?", status)
	}
	limit, args := q.page(page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows`+q.sql()+` ORDER BY updated_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	workflows := []*model.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, 0, err
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflows`+q.sql(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return workflows, total, nil
}

func (r *WorkflowRepository) Update(ctx context.Context, w *model.Workflow) error {
	w.UpdatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE workflows
        SET name=$1, description=$2, status=$3, trigger_type=$4, nodes=$5::jsonb, edges=$6::jsonb, updated_at=$7
        WHERE id=$8`, w.Name, w.Description, w.Status, w.TriggerType, w.Nodes, w.Edges, w.UpdatedAt, w.ID)
	return affected(res, err, "workflow", w.ID)
}

func (r *WorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM workflows WHERE id=$1`, id)
	return affected(res, err, "workflow", id)
}

var _ WorkflowRepositoryInterface = (*WorkflowRepository)(nil)
