// Package store declares the Resource Store contract. Every method takes an
// access.Scope: session scopes are checked against the access policy, elevated
// scopes skip it and are audit-logged by the implementation.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
)

// Store is the durable record store. Implementations must enforce
// payment-reference uniqueness atomically with insertion and implement the
// Confirm* methods as a single conditional write.
type Store interface {
	Users
	Verifications
	Events
	Submissions
	Volunteers
	Runs
	Tickets
	ShirtOrders
	Close()
}

// Users stores accounts and roles.
type Users interface {
	CreateUser(ctx context.Context, scope access.Scope, u *models.User) error
	GetUser(ctx context.Context, scope access.Scope, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, scope access.Scope, email string) (*models.User, error)
	CountUsers(ctx context.Context, scope access.Scope) (int, error)
	SetUserVerified(ctx context.Context, scope access.Scope, id uuid.UUID) error
	CreateRole(ctx context.Context, scope access.Scope, r *models.Role) error
	AssignRole(ctx context.Context, scope access.Scope, userID, roleID uuid.UUID) error
	ListUserRoles(ctx context.Context, scope access.Scope, userID uuid.UUID) ([]models.Role, error)
}

// Verifications stores one-time account verification codes.
type Verifications interface {
	CreateVerification(ctx context.Context, scope access.Scope, v *models.Verification) error
	FindVerifications(ctx context.Context, scope access.Scope, code string) ([]models.Verification, error)
	DeleteVerification(ctx context.Context, scope access.Scope, id uuid.UUID) error
}

// Events stores events.
type Events interface {
	ListEvents(ctx context.Context, scope access.Scope) ([]models.Event, error)
	GetEventByShortname(ctx context.Context, scope access.Scope, shortname string) (*models.Event, error)
	CreateEvent(ctx context.Context, scope access.Scope, e *models.Event) error
	UpdateEvent(ctx context.Context, scope access.Scope, e *models.Event) error
	DeleteEvent(ctx context.Context, scope access.Scope, id uuid.UUID) error
}

// Submissions stores game submissions.
type Submissions interface {
	ListSubmissions(ctx context.Context, scope access.Scope) ([]models.Submission, error)
	CreateSubmission(ctx context.Context, scope access.Scope, s *models.Submission) error
	UpdateSubmission(ctx context.Context, scope access.Scope, s *models.Submission) error
	DeleteSubmission(ctx context.Context, scope access.Scope, id uuid.UUID) error
}

// Volunteers stores volunteer applications.
type Volunteers interface {
	ListVolunteers(ctx context.Context, scope access.Scope) ([]models.Volunteer, error)
	CreateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error
	UpdateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error
	DeleteVolunteer(ctx context.Context, scope access.Scope, id uuid.UUID) error
}

// Runs stores the schedule.
type Runs interface {
	ListRuns(ctx context.Context, scope access.Scope, eventID uuid.UUID) ([]models.Run, error)
	CreateRun(ctx context.Context, scope access.Scope, r *models.Run) error
}

// Tickets stores event tickets.
type Tickets interface {
	ListTickets(ctx context.Context, scope access.Scope) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, scope access.Scope, t *models.Ticket) error
	// ConfirmTicket marks the ticket with ref paid and sets its count, only if
	// it is still unpaid. confirmed is false when the ticket was already paid,
	// in which case it is returned unchanged.
	ConfirmTicket(ctx context.Context, scope access.Scope, ref string, numberOfTickets int) (t *models.Ticket, confirmed bool, err error)
}

// ShirtOrders stores merchandise orders.
type ShirtOrders interface {
	ListShirtOrders(ctx context.Context, scope access.Scope) ([]models.ShirtOrder, error)
	CreateShirtOrder(ctx context.Context, scope access.Scope, o *models.ShirtOrder) error
	ConfirmShirtOrder(ctx context.Context, scope access.Scope, ref string) (o *models.ShirtOrder, confirmed bool, err error)
}

// Decide evaluates the scope's decision and rejects outright denials.
func Decide(scope access.Scope, rt access.RecordType, op access.Operation) (access.Decision, error) {
	d := scope.Decide(rt, op)
	if d.Effect == access.EffectDeny {
		return d, fmt.Errorf("%s %s: %w", op, rt, apperr.ErrForbidden)
	}
	return d, nil
}

// CheckRecord verifies the decision admits a concrete record.
func CheckRecord(d access.Decision, rt access.RecordType, op access.Operation, fields access.Fields) error {
	if !d.Permits(fields) {
		return fmt.Errorf("%s %s: %w", op, rt, apperr.ErrForbidden)
	}
	return nil
}

// CheckMutation applies the update/delete rules to an existing record:
// records the scope cannot see are reported as not found, visible records
// outside the mutation filter as forbidden. When updated is non-nil the new
// values must satisfy the same filter, so owners cannot move a record out of
// their own reach.
func CheckMutation(scope access.Scope, rt access.RecordType, op access.Operation, existing, updated access.Fields) error {
	if !scope.Decide(rt, access.OpQuery).Permits(existing) {
		return fmt.Errorf("%s: %w", rt, apperr.ErrNotFound)
	}
	d := scope.Decide(rt, op)
	if !d.Permits(existing) {
		return fmt.Errorf("%s %s: %w", op, rt, apperr.ErrForbidden)
	}
	if updated != nil && !d.Permits(updated) {
		return fmt.Errorf("%s %s: %w", op, rt, apperr.ErrForbidden)
	}
	return nil
}
