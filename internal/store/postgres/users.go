package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

const userSelect = `SELECT u.id, u.username, COALESCE(u.name,''), u.email, u.password_hash, u.verified, u.created_at, u.updated_at FROM users u`

var userColumns = columns{access.FieldOwner: "u.username"}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Password, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, scope access.Scope, u *models.User) error {
	d, err := s.decide(scope, access.RecordUser, access.OpCreate)
	if err != nil {
		return err
	}
	if err := store.CheckRecord(d, access.RecordUser, access.OpCreate, u.AccessFields()); err != nil {
		return err
	}
	const q = `INSERT INTO users (username, name, email, password_hash, verified)
		VALUES ($1, NULLIF($2,''), $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err = s.pool.QueryRow(ctx, q, u.Username, u.Name, u.Email, u.Password, u.Verified).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return translate(err, "insert user")
}

func (s *Store) GetUser(ctx context.Context, scope access.Scope, id uuid.UUID) (*models.User, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, userColumns, []any{id})
	if err != nil {
		return nil, err
	}
	u, err := scanUser(s.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`+clause, args...))
	if err != nil {
		return nil, translate(err, "get user")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, scope access.Scope, email string) (*models.User, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, userColumns, []any{email})
	if err != nil {
		return nil, err
	}
	u, err := scanUser(s.pool.QueryRow(ctx, userSelect+` WHERE u.email = $1`+clause, args...))
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context, scope access.Scope) (int, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return 0, err
	}
	clause, args, err := where(d, userColumns, nil)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE TRUE`+clause, args...).Scan(&n)
	return n, translate(err, "count users")
}

func (s *Store) SetUserVerified(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordUser, access.OpUpdate)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, userSelect+` WHERE u.id = $1 FOR UPDATE`, id))
		if err != nil {
			return translate(err, "lock user")
		}
		updated := *u
		updated.Verified = true
		if err := store.CheckMutation(scope, access.RecordUser, access.OpUpdate, u.AccessFields(), updated.AccessFields()); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
		return translate(err, "verify user")
	})
}

func (s *Store) CreateRole(ctx context.Context, scope access.Scope, r *models.Role) error {
	if _, err := s.decide(scope, access.RecordRole, access.OpCreate); err != nil {
		return err
	}
	const q = `INSERT INTO roles (name, admin, can_manage_users, can_manage_content, runner, volunteer, event)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''))
		RETURNING id, created_at`
	c := r.Capabilities
	err := s.pool.QueryRow(ctx, q, r.Name, c.Admin, c.ManageUsers, c.ManageContent, c.Runner, c.Volunteer, r.Event).
		Scan(&r.ID, &r.CreatedAt)
	return translate(err, "insert role")
}

func (s *Store) AssignRole(ctx context.Context, scope access.Scope, userID, roleID uuid.UUID) error {
	if _, err := s.decide(scope, access.RecordRole, access.OpUpdate); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	return translate(err, "assign role")
}

func (s *Store) ListUserRoles(ctx context.Context, scope access.Scope, userID uuid.UUID) ([]models.Role, error) {
	if _, err := s.decide(scope, access.RecordRole, access.OpQuery); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT r.id, r.name, r.admin, r.can_manage_users, r.can_manage_content, r.runner, r.volunteer, COALESCE(r.event,''), r.created_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.created_at`, userID)
	if err != nil {
		return nil, translate(err, "list roles")
	}
	defer rows.Close()
	var list []models.Role
	for rows.Next() {
		var r models.Role
		c := &r.Capabilities
		if err := rows.Scan(&r.ID, &r.Name, &c.Admin, &c.ManageUsers, &c.ManageContent, &c.Runner, &c.Volunteer, &r.Event, &r.CreatedAt); err != nil {
			return nil, translate(err, "scan role")
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (s *Store) CreateVerification(ctx context.Context, scope access.Scope, v *models.Verification) error {
	if _, err := s.decide(scope, access.RecordVerification, access.OpCreate); err != nil {
		return err
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO verifications (user_id, code) VALUES ($1, $2) RETURNING id, created_at`, v.UserID, v.Code).
		Scan(&v.ID, &v.CreatedAt)
	return translate(err, "insert verification")
}

// FindVerifications returns every record with the code. Codes are not unique
// in the schema, so callers can detect duplicates instead of picking one.
func (s *Store) FindVerifications(ctx context.Context, scope access.Scope, code string) ([]models.Verification, error) {
	if _, err := s.decide(scope, access.RecordVerification, access.OpQuery); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, code, created_at FROM verifications WHERE code = $1`, code)
	if err != nil {
		return nil, translate(err, "find verifications")
	}
	defer rows.Close()
	var list []models.Verification
	for rows.Next() {
		var v models.Verification
		if err := rows.Scan(&v.ID, &v.UserID, &v.Code, &v.CreatedAt); err != nil {
			return nil, translate(err, "scan verification")
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func (s *Store) DeleteVerification(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	if _, err := s.decide(scope, access.RecordVerification, access.OpDelete); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete verification")
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "verification")
	}
	return nil
}
