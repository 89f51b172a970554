package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
)

var sudo = access.Elevated("test fixture")

type fixture struct {
	store  *Store
	event  *models.Event
	alice  *models.User
	bob    *models.User
	aliceA *access.Actor
	bobA   *access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := New(nil)

	event := &models.Event{Name: "ASM2026", Shortname: "ASM2026", Published: true}
	require.NoError(t, s.CreateEvent(ctx, sudo, event))

	alice := &models.User{Username: "alice", Email: "alice@example.com"}
	bob := &models.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, s.CreateUser(ctx, sudo, alice))
	require.NoError(t, s.CreateUser(ctx, sudo, bob))

	return &fixture{
		store:  s,
		event:  event,
		alice:  alice,
		bob:    bob,
		aliceA: &access.Actor{ID: alice.ID, Username: "alice", Capabilities: access.Capabilities{Runner: true}},
		bobA:   &access.Actor{ID: bob.ID, Username: "bob", Capabilities: access.Capabilities{Runner: true}},
	}
}

func TestSubmissions_OwnershipAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aliceScope := access.ForActor(f.aliceA)
	bobScope := access.ForActor(f.bobA)

	sub := &models.Submission{RunnerID: f.alice.ID, EventID: f.event.ID, Game: "Celeste", Status: models.SubmissionSubmitted}
	require.NoError(t, f.store.CreateSubmission(ctx, aliceScope, sub))

	// bob cannot create on alice's behalf
	err := f.store.CreateSubmission(ctx, bobScope, &models.Submission{RunnerID: f.alice.ID, EventID: f.event.ID, Status: models.SubmissionSubmitted})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := f.store.ListSubmissions(ctx, bobScope)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.store.ListSubmissions(ctx, aliceScope)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// invisible to bob
	err = f.store.DeleteSubmission(ctx, bobScope, sub.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// owner cannot promote their own submission
	promoted := *sub
	promoted.Status = models.SubmissionAccepted
	err = f.store.UpdateSubmission(ctx, aliceScope, &promoted)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// a content manager can
	editor := access.ForActor(&access.Actor{Username: "editor", Capabilities: access.Capabilities{ManageContent: true}})
	require.NoError(t, f.store.UpdateSubmission(ctx, editor, &promoted))

	// past submitted, the owner still sees it but cannot change or delete it
	list, err = f.store.ListSubmissions(ctx, aliceScope)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.SubmissionAccepted, list[0].Status)

	edit := list[0]
	edit.Game = "Celeste 64"
	assert.ErrorIs(t, f.store.UpdateSubmission(ctx, aliceScope, &edit), apperr.ErrForbidden)
	assert.ErrorIs(t, f.store.DeleteSubmission(ctx, aliceScope, sub.ID), apperr.ErrForbidden)

	// anonymous sees nothing at all
	_, err = f.store.ListSubmissions(ctx, access.ForActor(nil))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestVolunteers_OwnerEditsWhileSubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bobScope := access.ForActor(f.bobA)

	v := &models.Volunteer{UserID: f.bob.ID, EventID: f.event.ID, JobType: models.JobHost, Status: access.StatusSubmitted}
	require.NoError(t, f.store.CreateVolunteer(ctx, bobScope, v))

	edit := *v
	edit.Experience = "hosted twice"
	require.NoError(t, f.store.UpdateVolunteer(ctx, bobScope, &edit))

	list, err := f.store.ListVolunteers(ctx, access.ForActor(f.aliceA))
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, f.store.DeleteVolunteer(ctx, bobScope, v.ID))
}

func TestEvents_PublishedFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hidden := &models.Event{Name: "Secret", Shortname: "secret"}
	require.NoError(t, f.store.CreateEvent(ctx, sudo, hidden))

	public, err := f.store.ListEvents(ctx, access.ForActor(nil))
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "ASM2026", public[0].Shortname)

	admin := access.ForActor(&access.Actor{Username: "root", Capabilities: access.Capabilities{Admin: true}})
	all, err := f.store.ListEvents(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.store.GetEventByShortname(ctx, access.ForActor(f.aliceA), "secret")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	edit := *f.event
	edit.Name = "renamed"
	assert.ErrorIs(t, f.store.UpdateEvent(ctx, access.ForActor(f.aliceA), &edit), apperr.ErrForbidden)
	require.NoError(t, f.store.UpdateEvent(ctx, admin, &edit))

	dup := &models.Event{Shortname: "ASM2026"}
	assert.ErrorIs(t, f.store.CreateEvent(ctx, admin, dup), apperr.ErrConflict)
}

func TestTickets_UniqueReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := &models.Ticket{UserID: f.alice.ID, Event: "ASM2026", NumberOfTickets: 1, Method: models.MethodStripe, PaymentReference: "pi_1"}
	require.NoError(t, f.store.CreateTicket(ctx, sudo, first))
	assert.False(t, first.Paid)
	assert.Equal(t, "alice", first.Username)
	assert.Equal(t, f.event.ID, first.EventID)

	second := &models.Ticket{UserID: f.bob.ID, Event: "ASM2026", NumberOfTickets: 1, Method: models.MethodStripe, PaymentReference: "pi_1"}
	assert.ErrorIs(t, f.store.CreateTicket(ctx, sudo, second), apperr.ErrConflict)

	// issuance is not reachable from a plain session
	third := &models.Ticket{UserID: f.alice.ID, Event: "ASM2026", NumberOfTickets: 1, PaymentReference: "pi_3"}
	assert.ErrorIs(t, f.store.CreateTicket(ctx, access.ForActor(f.aliceA), third), apperr.ErrForbidden)

	mine, err := f.store.ListTickets(ctx, access.ForActor(f.bobA))
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestTickets_ConcurrentCreateHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.store.CreateTicket(ctx, sudo, &models.Ticket{UserID: f.alice.ID, Event: "ASM2026", NumberOfTickets: 1, PaymentReference: "race"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
		conflicts++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestTickets_ConfirmIsConditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateTicket(ctx, sudo, &models.Ticket{UserID: f.alice.ID, Event: "ASM2026", NumberOfTickets: 2, PaymentReference: "pi_c"}))

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmations := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, confirmed, err := f.store.ConfirmTicket(ctx, sudo, "pi_c", 2+i)
			assert.NoError(t, err)
			if confirmed {
				mu.Lock()
				confirmations++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, confirmations)

	tk, confirmed, err := f.store.ConfirmTicket(ctx, sudo, "pi_c", 99)
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.True(t, tk.Paid)
	assert.NotEqual(t, 99, tk.NumberOfTickets)

	_, _, err = f.store.ConfirmTicket(ctx, sudo, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestShirtOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := &models.ShirtOrder{UserID: f.bob.ID, Size: "m", Colour: "blue", Method: models.MethodBank, PaymentReference: "sh_1"}
	require.NoError(t, f.store.CreateShirtOrder(ctx, sudo, o))
	assert.ErrorIs(t, f.store.CreateShirtOrder(ctx, sudo, &models.ShirtOrder{UserID: f.bob.ID, PaymentReference: "sh_1"}), apperr.ErrConflict)

	got, confirmed, err := f.store.ConfirmShirtOrder(ctx, sudo, "sh_1")
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.True(t, got.Paid)

	_, confirmed, err = f.store.ConfirmShirtOrder(ctx, sudo, "sh_1")
	require.NoError(t, err)
	assert.False(t, confirmed)

	mine, err := f.store.ListShirtOrders(ctx, access.ForActor(f.bobA))
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestVerifications_RequireElevation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateVerification(ctx, sudo, &models.Verification{UserID: f.alice.ID, Code: "ABC123"}))

	_, err := f.store.FindVerifications(ctx, access.ForActor(f.aliceA), "ABC123")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	found, err := f.store.FindVerifications(ctx, sudo, "ABC123")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestUsers_SelfOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.GetUser(ctx, access.ForActor(f.aliceA), f.bob.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	me, err := f.store.GetUser(ctx, access.ForActor(f.aliceA), f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	err = f.store.CreateUser(ctx, access.ForActor(nil), &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	role := &models.Role{Name: "Runner", Capabilities: access.Capabilities{Runner: true}}
	assert.ErrorIs(t, f.store.CreateRole(ctx, access.ForActor(f.aliceA), role), apperr.ErrForbidden)
	require.NoError(t, f.store.CreateRole(ctx, sudo, role))
	require.NoError(t, f.store.AssignRole(ctx, sudo, f.alice.ID, role.ID))
	require.NoError(t, f.store.AssignRole(ctx, sudo, f.alice.ID, role.ID))

	roles, err := f.store.ListUserRoles(ctx, sudo, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

}
