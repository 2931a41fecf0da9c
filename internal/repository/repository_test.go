package repository

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
)

func TestQueryBuilder(t *testing.T) {
	q := &queryBuilder{}
	q.add("user_id=?", "u")
	q.add("(name ILIKE '%' || ? || '%' OR email ILIKE '%' || ? || '%')", "al")

	assert.Equal(t, " WHERE user_id=$1 AND (name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')", q.sql())

	limit, args := q.page(20, 40)
	assert.Equal(t, " LIMIT $3 OFFSET $4", limit)
	assert.Equal(t, []any{"u", "al", 20, 40}, args)
	assert.Len(t, q.args, 2, "page must not mutate the filter args")
}

func TestQueryBuilderEmpty(t *testing.T) {
	q := &queryBuilder{}
	assert.Equal(t, "", q.sql())
}

func TestUUIDArrayRoundTrip(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	parsed, err := parseUUIDs(uuidArray(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, parsed)

	_, err = parseUUIDs([]string{"nope"})
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil, "prospect", 1))
	assert.True(t, appErrors.IsNotFound(translate(sql.ErrNoRows, "prospect", 1)))
	assert.True(t, appErrors.IsType(translate(&pq.Error{Code: "23505"}, "prospect", 1), appErrors.TypeConflict))
	assert.True(t, appErrors.IsType(translate(&pq.Error{Code: "23503"}, "prospect", 1), appErrors.TypeValidation))

	other := sql.ErrConnDone
	assert.Equal(t, other, translate(other, "prospect", 1))
}
