package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

const ticketSelect = `SELECT t.id, t.user_id, u.username, t.event_id, e.shortname, t.number_of_tickets, t.method,
	t.payment_reference, t.paid, t.created_at, t.updated_at
	FROM tickets t JOIN users u ON u.id = t.user_id JOIN events e ON e.id = t.event_id`

var ticketColumns = columns{access.FieldOwner: "u.username"}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.EventID, &t.Event, &t.NumberOfTickets, &t.Method,
		&t.PaymentReference, &t.Paid, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTickets(ctx context.Context, scope access.Scope) ([]models.Ticket, error) {
	d, err := s.decide(scope, access.RecordTicket, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, ticketColumns, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, ticketSelect+` WHERE TRUE`+clause+` ORDER BY t.created_at`, args...)
	if err != nil {
		return nil, translate(err, "list tickets")
	}
	defer rows.Close()
	list := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, translate(err, "scan ticket")
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// CreateTicket inserts an unpaid ticket. The unique index on
// payment_reference makes concurrent inserts with one reference race to a
// single winner; the losers get ErrConflict.
func (s *Store) CreateTicket(ctx context.Context, scope access.Scope, t *models.Ticket) error {
	d, err := s.decide(scope, access.RecordTicket, access.OpCreate)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, t.UserID).Scan(&t.Username); err != nil {
			return translate(err, "ticket user")
		}
		if err := tx.QueryRow(ctx, `SELECT id FROM events WHERE shortname = $1`, t.Event).Scan(&t.EventID); err != nil {
			return translate(err, "ticket event")
		}
		if err := store.CheckRecord(d, access.RecordTicket, access.OpCreate, t.AccessFields()); err != nil {
			return err
		}
		const q = `INSERT INTO tickets (user_id, event_id, number_of_tickets, method, payment_reference, paid)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING id, paid, created_at, updated_at`
		err := tx.QueryRow(ctx, q, t.UserID, t.EventID, t.NumberOfTickets, t.Method, t.PaymentReference).
			Scan(&t.ID, &t.Paid, &t.CreatedAt, &t.UpdatedAt)
		return translate(err, "insert ticket")
	})
}

// ConfirmTicket flips paid and sets the ticket count in one conditional
// UPDATE. Only the write that observes paid = FALSE succeeds.
func (s *Store) ConfirmTicket(ctx context.Context, scope access.Scope, ref string, numberOfTickets int) (*models.Ticket, bool, error) {
	d, err := s.decide(scope, access.RecordTicket, access.OpUpdate)
	if err != nil {
		return nil, false, err
	}
	clause, args, err := where(d, ticketColumns, []any{ref, numberOfTickets})
	if err != nil {
		return nil, false, err
	}
	q := `UPDATE tickets t SET paid = TRUE, number_of_tickets = $2, updated_at = NOW()
		FROM users u WHERE u.id = t.user_id AND t.payment_reference = $1 AND NOT t.paid` + clause + `
		RETURNING t.id`
	var id any
	err = s.pool.QueryRow(ctx, q, args...).Scan(&id)
	confirmed := true
	if errors.Is(err, pgx.ErrNoRows) {
		confirmed = false
	} else if err != nil {
		return nil, false, translate(err, "confirm ticket")
	}

	qd, err := store.Decide(scope, access.RecordTicket, access.OpQuery)
	if err != nil {
		return nil, false, err
	}
	qclause, qargs, err := where(qd, ticketColumns, []any{ref})
	if err != nil {
		return nil, false, err
	}
	t, err := scanTicket(s.pool.QueryRow(ctx, ticketSelect+` WHERE t.payment_reference = $1`+qclause, qargs...))
	if err != nil {
		return nil, false, translate(err, "ticket")
	}
	if !confirmed && !t.Paid {
		// unpaid but outside the update filter
		return nil, false, store.CheckRecord(d, access.RecordTicket, access.OpUpdate, t.AccessFields())
	}
	return t, confirmed, nil
}

const shirtSelect = `SELECT o.id, o.user_id, u.username, o.size, o.colour, o.method, o.payment_reference, o.paid,
	o.created_at, o.updated_at FROM shirt_orders o JOIN users u ON u.id = o.user_id`

var shirtColumns = columns{access.FieldOwner: "u.username"}

func scanShirtOrder(row pgx.Row) (*models.ShirtOrder, error) {
	var o models.ShirtOrder
	err := row.Scan(&o.ID, &o.UserID, &o.Username, &o.Size, &o.Colour, &o.Method, &o.PaymentReference, &o.Paid,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListShirtOrders(ctx context.Context, scope access.Scope) ([]models.ShirtOrder, error) {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpQuery)
	if err != nil {
		return nil, err
	}
	clause, args, err := where(d, shirtColumns, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, shirtSelect+` WHERE TRUE`+clause+` ORDER BY o.created_at`, args...)
	if err != nil {
		return nil, translate(err, "list shirt orders")
	}
	defer rows.Close()
	list := []models.ShirtOrder{}
	for rows.Next() {
		o, err := scanShirtOrder(rows)
		if err != nil {
			return nil, translate(err, "scan shirt order")
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

func (s *Store) CreateShirtOrder(ctx context.Context, scope access.Scope, o *models.ShirtOrder) error {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpCreate)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, o.UserID).Scan(&o.Username); err != nil {
			return translate(err, "shirt order user")
		}
		if err := store.CheckRecord(d, access.RecordShirtOrder, access.OpCreate, o.AccessFields()); err != nil {
			return err
		}
		const q = `INSERT INTO shirt_orders (user_id, size, colour, method, payment_reference, paid)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING id, paid, created_at, updated_at`
		err := tx.QueryRow(ctx, q, o.UserID, o.Size, o.Colour, o.Method, o.PaymentReference).
			Scan(&o.ID, &o.Paid, &o.CreatedAt, &o.UpdatedAt)
		return translate(err, "insert shirt order")
	})
}

func (s *Store) ConfirmShirtOrder(ctx context.Context, scope access.Scope, ref string) (*models.ShirtOrder, bool, error) {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpUpdate)
	if err != nil {
		return nil, false, err
	}
	clause, args, err := where(d, shirtColumns, []any{ref})
	if err != nil {
		return nil, false, err
	}
	q := `UPDATE shirt_orders o SET paid = TRUE, updated_at = NOW()
		FROM users u WHERE u.id = o.user_id AND o.payment_reference = $1 AND NOT o.paid` + clause + `
		RETURNING o.id`
	var id any
	err = s.pool.QueryRow(ctx, q, args...).Scan(&id)
	confirmed := true
	if errors.Is(err, pgx.ErrNoRows) {
		confirmed = false
	} else if err != nil {
		return nil, false, translate(err, "confirm shirt order")
	}

	qd, err := store.Decide(scope, access.RecordShirtOrder, access.OpQuery)
	if err != nil {
		return nil, false, err
	}
	qclause, qargs, err := where(qd, shirtColumns, []any{ref})
	if err != nil {
		return nil, false, err
	}
	o, err := scanShirtOrder(s.pool.QueryRow(ctx, shirtSelect+` WHERE o.payment_reference = $1`+qclause, qargs...))
	if err != nil {
		return nil, false, translate(err, "shirt order")
	}
	if !confirmed && !o.Paid {
		return nil, false, store.CheckRecord(d, access.RecordShirtOrder, access.OpUpdate, o.AccessFields())
	}
	return o, confirmed, nil
}
