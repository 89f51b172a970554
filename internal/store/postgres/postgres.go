// Package postgres implements the Resource Store on PostgreSQL with pgx.
// Filtered decisions are rendered into WHERE clauses; mutations of governed
// records lock the row, apply the policy to it and write in one transaction.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is the pgx-backed Resource Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a store on an existing pool.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) decide(scope access.Scope, rt access.RecordType, op access.Operation) (access.Decision, error) {
	store.Audit(s.logger, scope, rt, op)
	return store.Decide(scope, rt, op)
}

// columns maps logical filter fields to SQL expressions for one query shape.
type columns map[string]string

// where appends the decision's filter as AND-ed equality clauses. An unknown
// field fails closed.
func where(d access.Decision, cols columns, args []any) (string, []any, error) {
	if d.Effect != access.EffectFilter {
		return "", args, nil
	}
	var b strings.Builder
	for _, c := range d.Filter {
		col, ok := cols[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("filter on %q: %w", c.Field, apperr.ErrForbidden)
		}
		args = append(args, c.Value)
		fmt.Fprintf(&b, " AND %s = $%d", col, len(args))
	}
	return b.String(), args, nil
}

func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s (%s): %w", what, pgErr.ConstraintName, apperr.ErrConflict)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s (%s): %w", what, pgErr.ConstraintName, apperr.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
