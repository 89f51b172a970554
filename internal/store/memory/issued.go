package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
)

func (s *Store) ListTickets(ctx context.Context, scope access.Scope) ([]models.Ticket, error) {
	d, err := s.decide(scope, access.RecordTicket, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Ticket{}
	for _, t := range s.tickets {
		if d.Permits(t.AccessFields()) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateTicket(ctx context.Context, scope access.Scope, t *models.Ticket) error {
	d, err := s.decide(scope, access.RecordTicket, access.OpCreate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[t.UserID]
	if !ok {
		return notFound("user")
	}
	var event *models.Event
	for _, e := range s.events {
		if e.Shortname == t.Event {
			e := e
			event = &e
			break
		}
	}
	if event == nil {
		return notFound("event")
	}
	t.Username, t.EventID = u.Username, event.ID
	if err := store.CheckRecord(d, access.RecordTicket, access.OpCreate, t.AccessFields()); err != nil {
		return err
	}
	if _, dup := s.ticketRefs[t.PaymentReference]; dup {
		return fmt.Errorf("ticket payment reference: %w", apperr.ErrConflict)
	}
	t.Paid = false
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	s.tickets[t.ID] = *t
	s.ticketRefs[t.PaymentReference] = t.ID
	return nil
}

func (s *Store) ConfirmTicket(ctx context.Context, scope access.Scope, ref string, numberOfTickets int) (*models.Ticket, bool, error) {
	d, err := s.decide(scope, access.RecordTicket, access.OpUpdate)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ticketRefs[ref]
	if !ok {
		return nil, false, notFound("ticket")
	}
	t := s.tickets[id]
	if err := store.CheckRecord(d, access.RecordTicket, access.OpUpdate, t.AccessFields()); err != nil {
		return nil, false, err
	}
	if t.Paid {
		return &t, false, nil
	}
	t.Paid = true
	t.NumberOfTickets = numberOfTickets
	t.UpdatedAt = time.Now().UTC()
	s.tickets[id] = t
	return &t, true, nil
}

func (s *Store) ListShirtOrders(ctx context.Context, scope access.Scope) ([]models.ShirtOrder, error) {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.ShirtOrder{}
	for _, o := range s.shirts {
		if d.Permits(o.AccessFields()) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateShirtOrder(ctx context.Context, scope access.Scope, o *models.ShirtOrder) error {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpCreate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[o.UserID]
	if !ok {
		return notFound("user")
	}
	o.Username = u.Username
	if err := store.CheckRecord(d, access.RecordShirtOrder, access.OpCreate, o.AccessFields()); err != nil {
		return err
	}
	if _, dup := s.shirtRefs[o.PaymentReference]; dup {
		return fmt.Errorf("shirt order payment reference: %w", apperr.ErrConflict)
	}
	o.Paid = false
	stamp(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	s.shirts[o.ID] = *o
	s.shirtRefs[o.PaymentReference] = o.ID
	return nil
}

func (s *Store) ConfirmShirtOrder(ctx context.Context, scope access.Scope, ref string) (*models.ShirtOrder, bool, error) {
	d, err := s.decide(scope, access.RecordShirtOrder, access.OpUpdate)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.shirtRefs[ref]
	if !ok {
		return nil, false, notFound("shirt order")
	}
	o := s.shirts[id]
	if err := store.CheckRecord(d, access.RecordShirtOrder, access.OpUpdate, o.AccessFields()); err != nil {
		return nil, false, err
	}
	if o.Paid {
		return &o, false, nil
	}
	o.Paid = true
	o.UpdatedAt = time.Now().UTC()
	s.shirts[id] = o
	return &o, true, nil
}
