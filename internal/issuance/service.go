// Package issuance creates tickets and shirt orders exactly once per external
// payment and confirms them when the payment provider reports the charge.
//
// Both pipelines are gated by the shared API key instead of the caller's
// session and run their store calls elevated.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/pkg/queue"
	"github.com/ausspeedruns/backend/pkg/secure"
)

// Kind names the issuable resource.
type Kind string

const (
	KindTicket Kind = "ticket"
	KindShirt  Kind = "shirt"
)

// Store is the subset of the Resource Store the workflow uses.
type Store interface {
	GetUser(ctx context.Context, scope access.Scope, id uuid.UUID) (*models.User, error)
	store.Tickets
	store.ShirtOrders
}

// Notifier receives issuance notifications. Delivery failures never fail the
// workflow.
type Notifier interface {
	Enqueue(ctx context.Context, t queue.JobType, payload any) error
}

// Service runs the Generate and Confirm pipelines.
type Service struct {
	store    Store
	secret   string
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the workflow. notifier may be nil.
func NewService(st Store, secret string, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, secret: secret, notifier: notifier, logger: logger}
}

// TicketRequest are the attributes of a ticket to generate.
type TicketRequest struct {
	UserID           uuid.UUID
	Event            string
	NumberOfTickets  int
	Method           string
	PaymentReference string
}

func (r TicketRequest) validate() error {
	switch {
	case r.UserID == uuid.Nil:
		return fmt.Errorf("userID is required: %w", apperr.ErrInvalid)
	case strings.TrimSpace(r.Event) == "":
		return fmt.Errorf("event is required: %w", apperr.ErrInvalid)
	case r.NumberOfTickets <= 0:
		return fmt.Errorf("numberOfTickets must be positive: %w", apperr.ErrInvalid)
	case !models.ValidMethod(r.Method):
		return fmt.Errorf("unknown method %q: %w", r.Method, apperr.ErrInvalid)
	}
	return nil
}

// ShirtRequest are the attributes of a shirt order to generate.
type ShirtRequest struct {
	UserID           uuid.UUID
	Size             string
	Colour           string
	Method           string
	PaymentReference string
}

func (r ShirtRequest) validate() error {
	switch {
	case r.UserID == uuid.Nil:
		return fmt.Errorf("userID is required: %w", apperr.ErrInvalid)
	case !models.ValidShirt(r.Size, r.Colour):
		return fmt.Errorf("unknown shirt %s/%s: %w", r.Size, r.Colour, apperr.ErrInvalid)
	case !models.ValidMethod(r.Method):
		return fmt.Errorf("unknown method %q: %w", r.Method, apperr.ErrInvalid)
	}
	return nil
}

// GenerateTicket creates an unpaid ticket for a verified user.
func (s *Service) GenerateTicket(ctx context.Context, apiKey string, req TicketRequest) (*models.Ticket, error) {
	if err := s.authorize(KindTicket, "generate", apiKey); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	user, err := s.eligible(ctx, KindTicket, req.UserID)
	if err != nil {
		return nil, err
	}
	t := &models.Ticket{
		UserID:           user.ID,
		Event:            req.Event,
		NumberOfTickets:  req.NumberOfTickets,
		Method:           req.Method,
		PaymentReference: reference(req.PaymentReference),
	}
	if err := s.store.CreateTicket(ctx, access.Elevated("ticket generate"), t); err != nil {
		return nil, fmt.Errorf("ticket generate: %w", err)
	}
	s.logger.Info("ticket generated",
		zap.String("ref", t.PaymentReference),
		zap.String("user", t.Username),
		zap.String("event", t.Event),
		zap.Int("tickets", t.NumberOfTickets),
	)
	s.notify(ctx, queue.JobTicketIssued, queue.NotificationPayload{
		UserID: user.ID, Username: user.Username, Email: user.Email,
		PaymentReference: t.PaymentReference, Event: t.Event, Quantity: t.NumberOfTickets,
	})
	return t, nil
}

// ConfirmTicket marks the ticket paid and sets its final count. Confirming a
// ticket that is already paid returns it unchanged.
func (s *Service) ConfirmTicket(ctx context.Context, apiKey, ref string, numberOfTickets int) (*models.Ticket, error) {
	if err := s.authorize(KindTicket, "confirm", apiKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("payment reference is required: %w", apperr.ErrInvalid)
	}
	if numberOfTickets <= 0 {
		return nil, fmt.Errorf("numberOfTickets must be positive: %w", apperr.ErrInvalid)
	}
	t, confirmed, err := s.store.ConfirmTicket(ctx, access.Elevated("ticket confirm"), ref, numberOfTickets)
	if err != nil {
		return nil, fmt.Errorf("ticket confirm: %w", err)
	}
	if !confirmed {
		s.logger.Info("ticket already paid", zap.String("ref", ref))
		return t, nil
	}
	s.logger.Info("ticket paid", zap.String("ref", ref), zap.String("user", t.Username), zap.Int("tickets", t.NumberOfTickets))
	s.notify(ctx, queue.JobTicketPaid, queue.NotificationPayload{
		UserID: t.UserID, Username: t.Username,
		PaymentReference: t.PaymentReference, Event: t.Event, Quantity: t.NumberOfTickets,
	})
	return t, nil
}

// GenerateShirt creates an unpaid shirt order for a verified user.
func (s *Service) GenerateShirt(ctx context.Context, apiKey string, req ShirtRequest) (*models.ShirtOrder, error) {
	if err := s.authorize(KindShirt, "generate", apiKey); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	user, err := s.eligible(ctx, KindShirt, req.UserID)
	if err != nil {
		return nil, err
	}
	o := &models.ShirtOrder{
		UserID:           user.ID,
		Size:             req.Size,
		Colour:           req.Colour,
		Method:           req.Method,
		PaymentReference: reference(req.PaymentReference),
	}
	if err := s.store.CreateShirtOrder(ctx, access.Elevated("shirt generate"), o); err != nil {
		return nil, fmt.Errorf("shirt generate: %w", err)
	}
	s.logger.Info("shirt order generated", zap.String("ref", o.PaymentReference), zap.String("user", o.Username))
	s.notify(ctx, queue.JobShirtIssued, queue.NotificationPayload{
		UserID: user.ID, Username: user.Username, Email: user.Email, PaymentReference: o.PaymentReference,
	})
	return o, nil
}

// ConfirmShirt marks the shirt order paid.
func (s *Service) ConfirmShirt(ctx context.Context, apiKey, ref string) (*models.ShirtOrder, error) {
	if err := s.authorize(KindShirt, "confirm", apiKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("payment reference is required: %w", apperr.ErrInvalid)
	}
	o, confirmed, err := s.store.ConfirmShirtOrder(ctx, access.Elevated("shirt confirm"), ref)
	if err != nil {
		return nil, fmt.Errorf("shirt confirm: %w", err)
	}
	if !confirmed {
		s.logger.Info("shirt order already paid", zap.String("ref", ref))
		return o, nil
	}
	s.logger.Info("shirt order paid", zap.String("ref", ref), zap.String("user", o.Username))
	s.notify(ctx, queue.JobShirtPaid, queue.NotificationPayload{
		UserID: o.UserID, Username: o.Username, PaymentReference: o.PaymentReference,
	})
	return o, nil
}

func (s *Service) authorize(kind Kind, step, apiKey string) error {
	if secure.Equal(s.secret, apiKey) {
		return nil
	}
	s.logger.Warn("api key mismatch", zap.String("kind", string(kind)), zap.String("step", step))
	return apperr.ErrUnauthorized
}

// eligible loads the target user elevated and requires the verified flag.
// An unknown user is reported the same way as an unverified one.
func (s *Service) eligible(ctx context.Context, kind Kind, userID uuid.UUID) (*models.User, error) {
	u, err := s.store.GetUser(ctx, access.Elevated(string(kind)+" eligibility"), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("unverified user: %w", apperr.ErrIneligible)
	}
	if err != nil {
		return nil, fmt.Errorf("%s eligibility: %w", kind, err)
	}
	if !u.Verified {
		s.logger.Info("unverified user refused", zap.String("kind", string(kind)), zap.String("user", u.Username))
		return nil, fmt.Errorf("unverified user: %w", apperr.ErrIneligible)
	}
	return u, nil
}

func (s *Service) notify(ctx context.Context, t queue.JobType, payload queue.NotificationPayload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, t, payload); err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("type", string(t)), zap.Error(err))
	}
}

// reference returns the caller's payment reference or a fresh one.
func reference(supplied string) string {
	if ref := strings.TrimSpace(supplied); ref != "" {
		return ref
	}
	return uuid.NewString()
}
