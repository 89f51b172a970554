package issuance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store/memory"
	"github.com/ausspeedruns/backend/pkg/queue"
)

const apiKey = "payments-secret"

var sudo = access.Elevated("test fixture")

type recorder struct {
	mu   sync.Mutex
	jobs []queue.JobType
	err  error
}

func (r *recorder) Enqueue(_ context.Context, t queue.JobType, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, t)
	return r.err
}

func (r *recorder) count(t queue.JobType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store      *memory.Store
	svc        *Service
	notes      *recorder
	verified   *models.User
	unverified *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New(nil)
	require.NoError(t, st.CreateEvent(ctx, sudo, &models.Event{Name: "ASAP2026", Shortname: "ASAP2026", Published: true, AcceptingTickets: true}))

	verified := &models.User{Username: "clubwho", Email: "clubwho@example.com", Verified: true}
	unverified := &models.User{Username: "newbie", Email: "newbie@example.com"}
	require.NoError(t, st.CreateUser(ctx, sudo, verified))
	require.NoError(t, st.CreateUser(ctx, sudo, unverified))

	notes := &recorder{}
	return &fixture{
		store:      st,
		svc:        NewService(st, apiKey, notes, nil),
		notes:      notes,
		verified:   verified,
		unverified: unverified,
	}
}

func (f *fixture) ticketRequest(ref string) TicketRequest {
	return TicketRequest{UserID: f.verified.ID, Event: "ASAP2026", NumberOfTickets: 2, Method: models.MethodStripe, PaymentReference: ref}
}

func (f *fixture) tickets(t *testing.T) []models.Ticket {
	t.Helper()
	list, err := f.store.ListTickets(context.Background(), sudo)
	require.NoError(t, err)
	return list
}

func TestGenerateThenConfirmTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest(""))
	require.NoError(t, err)
	assert.False(t, ticket.Paid)
	assert.Equal(t, 2, ticket.NumberOfTickets)
	assert.Equal(t, "clubwho", ticket.Username)
	_, err = uuid.Parse(ticket.PaymentReference)
	assert.NoError(t, err, "generated reference should be a uuid")
	assert.Equal(t, 1, f.notes.count(queue.JobTicketIssued))

	paid, err := f.svc.ConfirmTicket(ctx, apiKey, ticket.PaymentReference, 2)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, 2, paid.NumberOfTickets)
	assert.Equal(t, ticket.ID, paid.ID)

	again, err := f.svc.ConfirmTicket(ctx, apiKey, ticket.PaymentReference, 2)
	require.NoError(t, err)
	assert.True(t, again.Paid)
	assert.Equal(t, 2, again.NumberOfTickets)
	assert.Equal(t, 1, f.notes.count(queue.JobTicketPaid))
	assert.Len(t, f.tickets(t), 1)
}

func TestReconfirmDoesNotReapplyAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest("pi_retry"))
	require.NoError(t, err)
	_, err = f.svc.ConfirmTicket(ctx, apiKey, "pi_retry", 3)
	require.NoError(t, err)

	again, err := f.svc.ConfirmTicket(ctx, apiKey, "pi_retry", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, again.NumberOfTickets)
}

func TestGenerateRejectsWrongSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateTicket(ctx, "nope", f.ticketRequest("pi_1"))
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "incorrect api key", err.Error())

	// invalid attributes still report the secret failure first
	_, err = f.svc.GenerateTicket(ctx, "nope", TicketRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.ConfirmTicket(ctx, "", "pi_1", 1)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Empty(t, f.tickets(t))
}

func TestEmptyConfiguredSecretRejectsEverything(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, "", nil, nil)
	_, err := svc.GenerateTicket(context.Background(), "", f.ticketRequest(""))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGenerateRequiresVerifiedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.ticketRequest("pi_unverified")
	req.UserID = f.unverified.ID
	_, err := f.svc.GenerateTicket(ctx, apiKey, req)
	require.ErrorIs(t, err, apperr.ErrIneligible)
	assert.Contains(t, err.Error(), "unverified user")

	req.UserID = uuid.New()
	_, err = f.svc.GenerateTicket(ctx, apiKey, req)
	assert.ErrorIs(t, err, apperr.ErrIneligible)

	_, err = f.svc.GenerateShirt(ctx, apiKey, ShirtRequest{UserID: f.unverified.ID, Size: "m", Colour: "blue", Method: models.MethodBank})
	assert.ErrorIs(t, err, apperr.ErrIneligible)

	assert.Empty(t, f.tickets(t))
	assert.Zero(t, f.notes.count(queue.JobTicketIssued))
}

func TestGenerateDuplicateReferenceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest("pi_dup"))
	require.NoError(t, err)
	_, err = f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest("pi_dup"))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, f.tickets(t), 1)
}

func TestConcurrentGenerateHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 12
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest("pi_race"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
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
	assert.Len(t, f.tickets(t), 1)
}

func TestConcurrentConfirmAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.GenerateTicket(ctx, apiKey, f.ticketRequest("pi_webhook"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := f.svc.ConfirmTicket(ctx, apiKey, "pi_webhook", qty)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.notes.count(queue.JobTicketPaid))
	list := f.tickets(t)
	require.Len(t, list, 1)
	assert.True(t, list[0].Paid)
}

func TestConfirmUnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmTicket(context.Background(), apiKey, "pi_missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.ConfirmShirt(context.Background(), apiKey, "pi_missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []TicketRequest{
		{Event: "ASAP2026", NumberOfTickets: 1, Method: models.MethodStripe},
		{UserID: f.verified.ID, NumberOfTickets: 1, Method: models.MethodStripe},
		{UserID: f.verified.ID, Event: "ASAP2026", Method: models.MethodStripe},
		{UserID: f.verified.ID, Event: "ASAP2026", NumberOfTickets: 1, Method: "cash"},
	}
	for _, req := range bad {
		_, err := f.svc.GenerateTicket(ctx, apiKey, req)
		assert.ErrorIs(t, err, apperr.ErrInvalid)
	}

	_, err := f.svc.ConfirmTicket(ctx, apiKey, "pi_1", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	req := f.ticketRequest("")
	req.Event = "NOPE"
	_, err = f.svc.GenerateTicket(ctx, apiKey, req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestShirtLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateShirt(ctx, apiKey, ShirtRequest{UserID: f.verified.ID, Size: "huge", Colour: "blue", Method: models.MethodStripe})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	order, err := f.svc.GenerateShirt(ctx, apiKey, ShirtRequest{UserID: f.verified.ID, Size: "xl", Colour: "purple", Method: models.MethodStripe, PaymentReference: "pi_shirt"})
	require.NoError(t, err)
	assert.False(t, order.Paid)
	assert.Equal(t, "pi_shirt", order.PaymentReference)

	_, err = f.svc.GenerateShirt(ctx, apiKey, ShirtRequest{UserID: f.verified.ID, Size: "s", Colour: "white", Method: models.MethodStripe, PaymentReference: "pi_shirt"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	paid, err := f.svc.ConfirmShirt(ctx, apiKey, "pi_shirt")
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	_, err = f.svc.ConfirmShirt(ctx, apiKey, "pi_shirt")
	require.NoError(t, err)

	assert.Equal(t, 1, f.notes.count(queue.JobShirtIssued))
	assert.Equal(t, 1, f.notes.count(queue.JobShirtPaid))
}

func TestNotifierFailureDoesNotFailIssuance(t *testing.T) {
	f := newFixture(t)
	f.notes.err = errors.New("redis down")
	ticket, err := f.svc.GenerateTicket(context.Background(), apiKey, f.ticketRequest(""))
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.PaymentReference)
}
