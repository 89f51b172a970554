// Package memory is an in-process Resource Store used for local development
// and tests. A single mutex makes every method atomic, which gives the same
// uniqueness and conditional-update guarantees as the Postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

// Store keeps every record in maps keyed by id.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	users         map[uuid.UUID]models.User
	roles         map[uuid.UUID]models.Role
	userRoles     map[uuid.UUID][]uuid.UUID
	verifications map[uuid.UUID]models.Verification
	events        map[uuid.UUID]models.Event
	submissions   map[uuid.UUID]models.Submission
	volunteers    map[uuid.UUID]models.Volunteer
	runs          map[uuid.UUID]models.Run
	tickets       map[uuid.UUID]models.Ticket
	ticketRefs    map[string]uuid.UUID
	shirts        map[uuid.UUID]models.ShirtOrder
	shirtRefs     map[string]uuid.UUID
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:        logger,
		users:         make(map[uuid.UUID]models.User),
		roles:         make(map[uuid.UUID]models.Role),
		userRoles:     make(map[uuid.UUID][]uuid.UUID),
		verifications: make(map[uuid.UUID]models.Verification),
		events:        make(map[uuid.UUID]models.Event),
		submissions:   make(map[uuid.UUID]models.Submission),
		volunteers:    make(map[uuid.UUID]models.Volunteer),
		runs:          make(map[uuid.UUID]models.Run),
		tickets:       make(map[uuid.UUID]models.Ticket),
		ticketRefs:    make(map[string]uuid.UUID),
		shirts:        make(map[uuid.UUID]models.ShirtOrder),
		shirtRefs:     make(map[string]uuid.UUID),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) decide(scope access.Scope, rt access.RecordType, op access.Operation) (access.Decision, error) {
	store.Audit(s.logger, scope, rt, op)
	return store.Decide(scope, rt, op)
}

func stamp(id *uuid.UUID, created, updated *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := time.Now().UTC()
	*created = now
	if updated != nil {
		*updated = now
	}
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
}

// Users

func (s *Store) CreateUser(ctx context.Context, scope access.Scope, u *models.User) error {
	d, err := s.decide(scope, access.RecordUser, access.OpCreate)
	if err != nil {
		return err
	}
	if d.Effect != access.EffectAllow {
		return fmt.Errorf("create user: %w", apperr.ErrForbidden)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return fmt.Errorf("user already exists: %w", apperr.ErrConflict)
		}
	}
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(ctx context.Context, scope access.Scope, id uuid.UUID) (*models.User, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || !d.Permits(u.AccessFields()) {
		return nil, notFound("user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, scope access.Scope, email string) (*models.User, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email && d.Permits(u.AccessFields()) {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

func (s *Store) CountUsers(ctx context.Context, scope access.Scope) (int, error) {
	d, err := s.decide(scope, access.RecordUser, access.OpQuery)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if d.Permits(u.AccessFields()) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetUserVerified(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordUser, access.OpUpdate)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return notFound("user")
	}
	updated := u
	updated.Verified = true
	if err := store.CheckMutation(scope, access.RecordUser, access.OpUpdate, u.AccessFields(), updated.AccessFields()); err != nil {
		return err
	}
	updated.UpdatedAt = time.Now().UTC()
	s.users[id] = updated
	return nil
}

func (s *Store) CreateRole(ctx context.Context, scope access.Scope, r *models.Role) error {
	if _, err := s.decide(scope, access.RecordRole, access.OpCreate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&r.ID, &r.CreatedAt, nil)
	s.roles[r.ID] = *r
	return nil
}

func (s *Store) AssignRole(ctx context.Context, scope access.Scope, userID, roleID uuid.UUID) error {
	if _, err := s.decide(scope, access.RecordRole, access.OpUpdate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return notFound("user")
	}
	if _, ok := s.roles[roleID]; !ok {
		return notFound("role")
	}
	for _, id := range s.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
	return nil
}

func (s *Store) ListUserRoles(ctx context.Context, scope access.Scope, userID uuid.UUID) ([]models.Role, error) {
	if _, err := s.decide(scope, access.RecordRole, access.OpQuery); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Role
	for _, id := range s.userRoles[userID] {
		out = append(out, s.roles[id])
	}
	return out, nil
}

// Verifications

func (s *Store) CreateVerification(ctx context.Context, scope access.Scope, v *models.Verification) error {
	if _, err := s.decide(scope, access.RecordVerification, access.OpCreate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&v.ID, &v.CreatedAt, nil)
	s.verifications[v.ID] = *v
	return nil
}

func (s *Store) FindVerifications(ctx context.Context, scope access.Scope, code string) ([]models.Verification, error) {
	if _, err := s.decide(scope, access.RecordVerification, access.OpQuery); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Verification
	for _, v := range s.verifications {
		if v.Code == code {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) DeleteVerification(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	if _, err := s.decide(scope, access.RecordVerification, access.OpDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verifications[id]; !ok {
		return notFound("verification")
	}
	delete(s.verifications, id)
	return nil
}

// Events

func (s *Store) ListEvents(ctx context.Context, scope access.Scope) ([]models.Event, error) {
	d, err := s.decide(scope, access.RecordEvent, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Event{}
	for _, e := range s.events {
		if d.Permits(e.AccessFields()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetEventByShortname(ctx context.Context, scope access.Scope, shortname string) (*models.Event, error) {
	d, err := s.decide(scope, access.RecordEvent, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.Shortname == shortname && d.Permits(e.AccessFields()) {
			return &e, nil
		}
	}
	return nil, notFound("event")
}

func (s *Store) CreateEvent(ctx context.Context, scope access.Scope, e *models.Event) error {
	d, err := s.decide(scope, access.RecordEvent, access.OpCreate)
	if err != nil {
		return err
	}
	if err := store.CheckRecord(d, access.RecordEvent, access.OpCreate, e.AccessFields()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.Shortname == e.Shortname {
			return fmt.Errorf("event shortname %q: %w", e.Shortname, apperr.ErrConflict)
		}
	}
	stamp(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	s.events[e.ID] = *e
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, scope access.Scope, e *models.Event) error {
	store.Audit(s.logger, scope, access.RecordEvent, access.OpUpdate)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[e.ID]
	if !ok {
		return notFound("event")
	}
	if err := store.CheckMutation(scope, access.RecordEvent, access.OpUpdate, existing.AccessFields(), e.AccessFields()); err != nil {
		return err
	}
	for id, other := range s.events {
		if id != e.ID && other.Shortname == e.Shortname {
			return fmt.Errorf("event shortname %q: %w", e.Shortname, apperr.ErrConflict)
		}
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordEvent, access.OpDelete)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[id]
	if !ok {
		return notFound("event")
	}
	if err := store.CheckMutation(scope, access.RecordEvent, access.OpDelete, existing.AccessFields(), nil); err != nil {
		return err
	}
	delete(s.events, id)
	return nil
}

// Submissions

func (s *Store) ListSubmissions(ctx context.Context, scope access.Scope) ([]models.Submission, error) {
	d, err := s.decide(scope, access.RecordSubmission, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Submission{}
	for _, sub := range s.submissions {
		if d.Permits(sub.AccessFields()) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateSubmission(ctx context.Context, scope access.Scope, sub *models.Submission) error {
	d, err := s.decide(scope, access.RecordSubmission, access.OpCreate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	runner, ok := s.users[sub.RunnerID]
	if !ok {
		return notFound("runner")
	}
	if _, ok := s.events[sub.EventID]; !ok {
		return notFound("event")
	}
	sub.Runner = runner.Username
	if err := store.CheckRecord(d, access.RecordSubmission, access.OpCreate, sub.AccessFields()); err != nil {
		return err
	}
	stamp(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	s.submissions[sub.ID] = *sub
	return nil
}

func (s *Store) UpdateSubmission(ctx context.Context, scope access.Scope, sub *models.Submission) error {
	store.Audit(s.logger, scope, access.RecordSubmission, access.OpUpdate)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.submissions[sub.ID]
	if !ok {
		return notFound("submission")
	}
	// ownership is immutable
	sub.RunnerID, sub.Runner, sub.EventID = existing.RunnerID, existing.Runner, existing.EventID
	if err := store.CheckMutation(scope, access.RecordSubmission, access.OpUpdate, existing.AccessFields(), sub.AccessFields()); err != nil {
		return err
	}
	sub.CreatedAt = existing.CreatedAt
	sub.UpdatedAt = time.Now().UTC()
	s.submissions[sub.ID] = *sub
	return nil
}

func (s *Store) DeleteSubmission(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordSubmission, access.OpDelete)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.submissions[id]
	if !ok {
		return notFound("submission")
	}
	if err := store.CheckMutation(scope, access.RecordSubmission, access.OpDelete, existing.AccessFields(), nil); err != nil {
		return err
	}
	delete(s.submissions, id)
	return nil
}

// Volunteers

func (s *Store) ListVolunteers(ctx context.Context, scope access.Scope) ([]models.Volunteer, error) {
	d, err := s.decide(scope, access.RecordVolunteer, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Volunteer{}
	for _, v := range s.volunteers {
		if d.Permits(v.AccessFields()) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error {
	d, err := s.decide(scope, access.RecordVolunteer, access.OpCreate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[v.UserID]
	if !ok {
		return notFound("volunteer")
	}
	if _, ok := s.events[v.EventID]; !ok {
		return notFound("event")
	}
	v.Username = u.Username
	if err := store.CheckRecord(d, access.RecordVolunteer, access.OpCreate, v.AccessFields()); err != nil {
		return err
	}
	stamp(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	s.volunteers[v.ID] = *v
	return nil
}

func (s *Store) UpdateVolunteer(ctx context.Context, scope access.Scope, v *models.Volunteer) error {
	store.Audit(s.logger, scope, access.RecordVolunteer, access.OpUpdate)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.volunteers[v.ID]
	if !ok {
		return notFound("volunteer")
	}
	v.UserID, v.Username, v.EventID = existing.UserID, existing.Username, existing.EventID
	if err := store.CheckMutation(scope, access.RecordVolunteer, access.OpUpdate, existing.AccessFields(), v.AccessFields()); err != nil {
		return err
	}
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now().UTC()
	s.volunteers[v.ID] = *v
	return nil
}

func (s *Store) DeleteVolunteer(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	store.Audit(s.logger, scope, access.RecordVolunteer, access.OpDelete)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.volunteers[id]
	if !ok {
		return notFound("volunteer")
	}
	if err := store.CheckMutation(scope, access.RecordVolunteer, access.OpDelete, existing.AccessFields(), nil); err != nil {
		return err
	}
	delete(s.volunteers, id)
	return nil
}

// Runs

func (s *Store) ListRuns(ctx context.Context, scope access.Scope, eventID uuid.UUID) ([]models.Run, error) {
	if _, err := s.decide(scope, access.RecordRun, access.OpQuery); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Run{}
	for _, r := range s.runs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateRun(ctx context.Context, scope access.Scope, r *models.Run) error {
	if _, err := s.decide(scope, access.RecordRun, access.OpCreate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[r.EventID]; !ok {
		return notFound("event")
	}
	stamp(&r.ID, &r.CreatedAt, nil)
	s.runs[r.ID] = *r
	return nil
}
