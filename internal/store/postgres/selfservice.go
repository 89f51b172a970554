package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

const submissionSelect = `SELECT s.id, s.runner_id, u.username, s.event_id, s.game, COALESCE(s.category,''),
	COALESCE(s.platform,''), COALESCE(s.estimate,''), s.status, s.created_at, s.updated_at
	FROM submissions s JOIN users u ON u.id = s.runner_id`

var submissionColumns = columns{access.FieldOwner: "u.username", access.FieldStatus: "s.status"}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	err := row.Scan(&sub.ID, &sub.RunnerID, &sub.Runner, &sub.EventID, &sub.Game, &sub.Category,
		&sub.Platform, &sub.Estimate, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, scope access.Scope) ([]models.Submission, error) {
	d, err := s.decide(scope, access.RecordSubmission, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, submissionColumns, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, submissionSelect+` WHERE TRUE`+clause+` ORDER BY s.created_at`, args...)
	if err != nil {
		return nil, translate(err, "list submissions")
	}
	defer rows.Close()
	list := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, translate(err, "scan submission")
		}
		list = append(list, *sub)
	}
	return list, rows.Err()
}

func (s *Store) CreateSubmission(ctx context.Context, scope access.Scope, sub *models.Submission) error {
	d, err := s.decide(scope, access.RecordSubmission, access.OpCreate)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, sub.RunnerID).Scan(&sub.Runner); err != nil {
			return translate(err, "runner")
		}
		if err := store.CheckRecord(d, access.RecordSubmission, access.OpCreate, sub.AccessFields()); err != nil {
			return err
		}
		const q = `INSERT INTO submissions (runner_id, event_id, game, category, platform, estimate, status)
			VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, q, sub.RunnerID, sub.EventID, sub.Game, sub.Category, sub.Platform, sub.Estimate, sub.Status).
			Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
		return translate(err, "insert submission")
	})
}

func (s *Store) UpdateSubmission(ctx context.Context, scope access.Scope, sub *models.Submission) error {
	store.Audit(s.logger, scope, access.RecordSubmission, access.OpUpdate)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanSubmission(tx.QueryRow(ctx, submissionSelect+` WHERE s.id = $1 FOR UPDATE OF s`, sub.ID))
		if err != nil {
			return translate(err, "lock submission")
		}
		sub.RunnerID, sub.Runner, sub.EventID = existing.RunnerID, existing.Runner, existing.EventID
		if err := store.CheckMutation(scope, access.RecordSubmission, access.OpUpdate, existing.AccessFields(), sub.AccessFields()); err != nil {
			return err
		}
		const q = `UPDATE submissions SET game = $2, category = NULLIF($3,''), platform = NULLIF($4,''),
			estimate = NULLIF($5,''), status = $6, updated_at = NOW()
			WHERE id = $1 RETURNING created_at, updated_at`
		err = tx.QueryRow(ctx, q, sub.ID, sub.Game, sub.Category, sub.Platform, sub.Estimate, sub.Status).
			Scan(&sub.CreatedAt, &sub.UpdatedAt)
		return translate(err, "update submission")
	})
}

func (s *Store) DeleteSubmission(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordSubmission, access.OpDelete)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanSubmission(tx.QueryRow(ctx, submissionSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
		if err != nil {
			return translate(err, "lock submission")
		}
		if err := store.CheckMutation(scope, access.RecordSubmission, access.OpDelete, existing.AccessFields(), nil); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
		return translate(err, "delete submission")
	})
}

const volunteerSelect = `SELECT v.id, v.user_id, u.username, v.event_id, v.job_type, v.event_host_time,
	COALESCE(v.additional_info,''), COALESCE(v.experience,''), v.status, v.created_at, v.updated_at
	FROM volunteers v JOIN users u ON u.id = v.user_id`

var volunteerColumns = columns{access.FieldOwner: "u.username", access.FieldStatus: "v.status"}

func scanVolunteer(row pgx.Row) (*models.Volunteer, error) {
	var v models.Volunteer
	err := row.Scan(&v.ID, &v.UserID, &v.Username, &v.EventID, &v.JobType, &v.EventHostTime,
		&v.AdditionalInfo, &v.Experience, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) ListVolunteers(ctx context.Context, scope access.Scope) ([]models.Volunteer, error) {
	d, err := s.decide(scope, access.RecordVolunteer, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, volunteerColumns, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, volunteerSelect+` WHERE TRUE`+clause+` ORDER BY v.created_at`, args...)
	if err != nil {
		return nil, translate(err, "list volunteers")
	}
	defer rows.Close()
	list := []models.Volunteer{}
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, translate(err, "scan volunteer")
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

func (s *Store) CreateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error {
	d, err := s.decide(scope, access.RecordVolunteer, access.OpCreate)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, v.UserID).Scan(&v.Username); err != nil {
			return translate(err, "volunteer")
		}
		if err := store.CheckRecord(d, access.RecordVolunteer, access.OpCreate, v.AccessFields()); err != nil {
			return err
		}
		const q = `INSERT INTO volunteers (user_id, event_id, job_type, event_host_time, additional_info, experience, status)
			VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, q, v.UserID, v.EventID, v.JobType, v.EventHostTime, v.AdditionalInfo, v.Experience, v.Status).
			Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
		return translate(err, "insert volunteer")
	})
}

func (s *Store) UpdateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error {
	store.Audit(s.logger, scope, access.RecordVolunteer, access.OpUpdate)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanVolunteer(tx.QueryRow(ctx, volunteerSelect+` WHERE v.id = $1 FOR UPDATE OF v`, v.ID))
		if err != nil {
			return translate(err, "lock volunteer")
		}
		v.UserID, v.Username, v.EventID = existing.UserID, existing.Username, existing.EventID
		if err := store.CheckMutation(scope, access.RecordVolunteer, access.OpUpdate, existing.AccessFields(), v.AccessFields()); err != nil {
			return err
		}
		const q = `UPDATE volunteers SET job_type = $2, event_host_time = $3, additional_info = NULLIF($4,''),
			experience = NULLIF($5,''), status = $6, updated_at = NOW()
			WHERE id = $1 RETURNING created_at, updated_at`
		err = tx.QueryRow(ctx, q, v.ID, v.JobType, v.EventHostTime, v.AdditionalInfo, v.Experience, v.Status).
			Scan(&v.CreatedAt, &v.UpdatedAt)
		return translate(err, "update volunteer")
	})
}

func (s *Store) DeleteVolunteer(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordVolunteer, access.OpDelete)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanVolunteer(tx.QueryRow(ctx, volunteerSelect+` WHERE v.id = $1 FOR UPDATE OF v`, id))
		if err != nil {
			return translate(err, "lock volunteer")
		}
		if err := store.CheckMutation(scope, access.RecordVolunteer, access.OpDelete, existing.AccessFields(), nil); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
		return translate(err, "delete volunteer")
	})
}
