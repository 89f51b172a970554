package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
)

func TestWhereAllowAddsNothing(t *testing.T) {
	clause, args, err := where(access.Allow(), submissionColumns, []any{"x"})
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Equal(t, []any{"x"}, args)
}

func TestWhereNumbersPlaceholdersAfterExistingArgs(t *testing.T) {
	d := access.Filtered(
		access.Condition{Field: access.FieldOwner, Value: "alice"},
		access.Condition{Field: access.FieldStatus, Value: access.StatusSubmitted},
	)
	clause, args, err := where(d, submissionColumns, []any{"id"})
	require.NoError(t, err)
	assert.Equal(t, " AND u.username = $2 AND s.status = $3", clause)
	assert.Equal(t, []any{"id", "alice", access.StatusSubmitted}, args)
}

func TestWhereUnknownFieldFailsClosed(t *testing.T) {
	d := access.Filtered(access.Condition{Field: access.FieldStatus, Value: "submitted"})
	_, _, err := where(d, ticketColumns, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "x"))
	assert.ErrorIs(t, translate(pgx.ErrNoRows, "ticket"), apperr.ErrNotFound)

	unique := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "tickets_payment_reference_key"}
	err := translate(fmt.Errorf("exec: %w", unique), "insert ticket")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "tickets_payment_reference_key")

	fk := &pgconn.PgError{Code: codeForeignKeyViolation}
	assert.ErrorIs(t, translate(fk, "insert run"), apperr.ErrNotFound)

	other := translate(&pgconn.PgError{Code: "42P01"}, "q")
	assert.NotErrorIs(t, other, apperr.ErrNotFound)
	assert.NotErrorIs(t, other, apperr.ErrConflict)
}
