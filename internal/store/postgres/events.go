package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

const eventSelect = `SELECT e.id, e.name, e.shortname, e.published, e.accepting_submissions, e.accepting_tickets,
	e.accepting_volunteers, e.accepting_shirts, e.schedule_released, COALESCE(e.event_timezone,''),
	e.start_date, e.end_date, e.raised, e.created_at, e.updated_at FROM events e`

var eventColumns = columns{access.FieldPublished: "e.published"}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Shortname, &e.Published, &e.AcceptingSubmissions, &e.AcceptingTickets,
		&e.AcceptingVolunteers, &e.AcceptingShirts, &e.ScheduleReleased, &e.Timezone,
		&e.StartDate, &e.EndDate, &e.Raised, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListEvents(ctx context.Context, scope access.Scope) ([]models.Event, error) {
	d, err := s.decide(scope, access.RecordEvent, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, eventColumns, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, eventSelect+` WHERE TRUE`+clause+` ORDER BY e.start_date NULLS LAST, e.created_at`, args...)
	if err != nil {
		return nil, translate(err, "list events")
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, translate(err, "scan event")
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (s *Store) GetEventByShortname(ctx context.Context, scope access.Scope, shortname string) (*models.Event, error) {
	d, err := s.decide(scope, access.RecordEvent, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, eventColumns, []any{shortname})
	if err != nil {
		return nil, err
	}
	e, err := scanEvent(s.pool.QueryRow(ctx, eventSelect+` WHERE e.shortname = $1`+clause, args...))
	if err != nil {
		return nil, translate(err, "get event")
	}
	return e, nil
}

func (s *Store) CreateEvent(ctx context.Context, scope access.Scope, e *models.Event) error {
	d, err := s.decide(scope, access.RecordEvent, access.OpCreate)
	if err != nil {
		return err
	}
	if err := store.CheckRecord(d, access.RecordEvent, access.OpCreate, e.AccessFields()); err != nil {
		return err
	}
	const q = `INSERT INTO events (name, shortname, published, accepting_submissions, accepting_tickets,
		accepting_volunteers, accepting_shirts, schedule_released, event_timezone, start_date, end_date, raised)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9,''), $10, $11, $12)
		RETURNING id, created_at, updated_at`
	err = s.pool.QueryRow(ctx, q, e.Name, e.Shortname, e.Published, e.AcceptingSubmissions, e.AcceptingTickets,
		e.AcceptingVolunteers, e.AcceptingShirts, e.ScheduleReleased, e.Timezone, e.StartDate, e.EndDate, e.Raised).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translate(err, "insert event")
}

func (s *Store) UpdateEvent(ctx context.Context, scope access.Scope, e *models.Event) error {
	store.Audit(s.logger, scope, access.RecordEvent, access.OpUpdate)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanEvent(tx.QueryRow(ctx, eventSelect+` WHERE e.id = $1 FOR UPDATE`, e.ID))
		if err != nil {
			return translate(err, "lock event")
		}
		if err := store.CheckMutation(scope, access.RecordEvent, access.OpUpdate, existing.AccessFields(), e.AccessFields()); err != nil {
			return err
		}
		const q = `UPDATE events SET name = $2, shortname = $3, published = $4, accepting_submissions = $5,
			accepting_tickets = $6, accepting_volunteers = $7, accepting_shirts = $8, schedule_released = $9,
			event_timezone = NULLIF($10,''), start_date = $11, end_date = $12, raised = $13, updated_at = NOW()
			WHERE id = $1 RETURNING created_at, updated_at`
		err = tx.QueryRow(ctx, q, e.ID, e.Name, e.Shortname, e.Published, e.AcceptingSubmissions,
			e.AcceptingTickets, e.AcceptingVolunteers, e.AcceptingShirts, e.ScheduleReleased,
			e.Timezone, e.StartDate, e.EndDate, e.Raised).Scan(&e.CreatedAt, &e.UpdatedAt)
		return translate(err, "update event")
	})
}

func (s *Store) DeleteEvent(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordEvent, access.OpDelete)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanEvent(tx.QueryRow(ctx, eventSelect+` WHERE e.id = $1 FOR UPDATE`, id))
		if err != nil {
			return translate(err, "lock event")
		}
		if err := store.CheckMutation(scope, access.RecordEvent, access.OpDelete, existing.AccessFields(), nil); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		return translate(err, "delete event")
	})
}

func (s *Store) ListRuns(ctx context.Context, scope access.Scope, eventID uuid.UUID) ([]models.Run, error) {
	if _, err := s.decide(scope, access.RecordRun, access.OpQuery); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, event_id, game, COALESCE(category,''), COALESCE(platform,''), COALESCE(estimate,''),
		runners, scheduled_time, created_at FROM runs WHERE event_id = $1 ORDER BY scheduled_time NULLS LAST, created_at`, eventID)
	if err != nil {
		return nil, translate(err, "list runs")
	}
	defer rows.Close()
	list := []models.Run{}
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.EventID, &r.Game, &r.Category, &r.Platform, &r.Estimate, &r.Runners, &r.ScheduledTime, &r.CreatedAt); err != nil {
			return nil, translate(err, "scan run")
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context, scope access.Scope, r *models.Run) error {
	if _, err := s.decide(scope, access.RecordRun, access.OpCreate); err != nil {
		return err
	}
	if r.Runners == nil {
		r.Runners = []string{}
	}
	const q = `INSERT INTO runs (event_id, game, category, platform, estimate, runners, scheduled_time)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, $7)
		RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, r.EventID, r.Game, r.Category, r.Platform, r.Estimate, r.Runners, r.ScheduledTime).
		Scan(&r.ID, &r.CreatedAt)
	return translate(err, "insert run")
}
