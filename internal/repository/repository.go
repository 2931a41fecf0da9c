package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
)

type scanner interface {
	Scan(dest ...any) error
}

// queryBuilder accumulates WHERE clauses with $n placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

func (q *queryBuilder) add(clause string, arg any) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(q.args))))
}

func (q *queryBuilder) sql() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause.
func (q *queryBuilder) page(limit, offset int) (string, []any) {
	args := append(append([]any{}, q.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(q.args)+1, len(q.args)+2), args
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// translate maps driver errors onto the application error types.
func translate(err error, kind string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(kind, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return appErrors.Conflict("%s already exists", kind).WithField("constraint", pqErr.Constraint)
		case "23503":
			return appErrors.Validation("%s references a row that does not exist", kind).WithField("constraint", pqErr.Constraint)
		}
	}
	return err
}

// affected turns a zero-row update/delete into a not-found error.
func affected(res sql.Result, err error, kind string, id any) error {
	if err != nil {
		return translate(err, kind, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NotFound(kind, id)
	}
	return nil
}
