// Package auth covers accounts: sign-up with email verification, login into
// a session token, the verification-code lookup and role administration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/pkg/queue"
	"github.com/ausspeedruns/backend/pkg/secure"
)

// ErrBadCredentials is returned by Login for an unknown email or wrong password.
var ErrBadCredentials = errors.New("invalid email or password")

const verificationCodeBytes = 16

// Store is the subset of the Resource Store used for accounts.
type Store interface {
	store.Users
	store.Verifications
}

// Notifier queues account emails.
type Notifier interface {
	Enqueue(ctx context.Context, t queue.JobType, payload any) error
}

// Service implements the account operations.
type Service struct {
	store    Store
	sessions *session.Manager
	secret   string
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the account service. notifier may be nil.
func NewService(st Store, sessions *session.Manager, secret string, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, sessions: sessions, secret: secret, notifier: notifier, logger: logger}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
}

func (in RegisterInput) validate() error {
	if len(strings.TrimSpace(in.Username)) < 3 {
		return fmt.Errorf("username must be at least 3 characters: %w", apperr.ErrInvalid)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("invalid email: %w", apperr.ErrInvalid)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", apperr.ErrInvalid)
	}
	return nil
}

// Register creates an unverified account and its verification code. The
// first account ever created is given an all-capabilities admin role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := secure.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	existing, err := s.store.CountUsers(ctx, access.Elevated("sign-up bootstrap check"))
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	u := &models.User{
		Username: strings.TrimSpace(in.Username),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: hash,
	}
	// sign-up is always an anonymous create
	if err := s.store.CreateUser(ctx, access.ForActor(nil), u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if existing == 0 {
		if err := s.bootstrapAdmin(ctx, u); err != nil {
			return nil, err
		}
	}

	code, err := secure.NewVerificationCode(verificationCodeBytes)
	if err != nil {
		return nil, err
	}
	v := &models.Verification{UserID: u.ID, Code: code}
	if err := s.store.CreateVerification(ctx, access.Elevated("sign-up verification"), v); err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}
	s.logger.Info("user registered", zap.String("user", u.Username), zap.Bool("admin", existing == 0))
	s.notify(ctx, queue.JobVerifyEmail, queue.NotificationPayload{UserID: u.ID, Username: u.Username, Email: u.Email, Code: code})
	return u, nil
}

func (s *Service) bootstrapAdmin(ctx context.Context, u *models.User) error {
	scope := access.Elevated("first user admin")
	role := &models.Role{
		Name: "Admin",
		Capabilities: access.Capabilities{
			Admin: true, ManageUsers: true, ManageContent: true, Runner: true, Volunteer: true,
		},
	}
	if err := s.store.CreateRole(ctx, scope, role); err != nil {
		return fmt.Errorf("create admin role: %w", err)
	}
	if err := s.store.AssignRole(ctx, scope, u.ID, role.ID); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}
	return nil
}

// Login checks the password and issues a session token with the actor
// snapshot.
func (s *Service) Login(ctx context.Context, email, password string) (string, *access.Actor, error) {
	u, err := s.store.GetUserByEmail(ctx, access.Elevated("login"), strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if !secure.CheckPassword(password, u.Password) {
		return "", nil, ErrBadCredentials
	}
	roles, err := s.store.ListUserRoles(ctx, access.Elevated("login roles"), u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("load roles: %w", err)
	}
	actor := session.Snapshot(u, roles)
	token, err := s.sessions.Issue(actor)
	if err != nil {
		return "", nil, err
	}
	return token, actor, nil
}

// Me returns the account of the session actor through the access policy.
func (s *Service) Me(ctx context.Context, sess *session.Context) (*models.User, error) {
	a := sess.Actor()
	if a == nil {
		return nil, apperr.ErrUnauthorized
	}
	return s.store.GetUser(ctx, sess.Scope(), a.ID)
}

// LookupVerification returns the single verification record with the code.
// Zero matches is ErrNotFound; several matches is a data integrity problem
// reported as ErrConflict rather than picking one.
func (s *Service) LookupVerification(ctx context.Context, apiKey, code string) (*models.Verification, error) {
	if !secure.Equal(s.secret, apiKey) {
		s.logger.Warn("api key mismatch", zap.String("step", "verification lookup"))
		return nil, apperr.ErrUnauthorized
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("missing code: %w", apperr.ErrInvalid)
	}
	matches, err := s.store.FindVerifications(ctx, access.Elevated("account verification lookup"), code)
	if err != nil {
		return nil, fmt.Errorf("find verification: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("verification code: %w", apperr.ErrNotFound)
	case 1:
		return &matches[0], nil
	}
	s.logger.Error("duplicate verification code", zap.Int("matches", len(matches)))
	return nil, fmt.Errorf("verification code matches %d records: %w", len(matches), apperr.ErrConflict)
}

// ConfirmVerification marks the code's owner verified and consumes the code.
func (s *Service) ConfirmVerification(ctx context.Context, apiKey, code string) (*models.User, error) {
	v, err := s.LookupVerification(ctx, apiKey, code)
	if err != nil {
		return nil, err
	}
	scope := access.Elevated("account verification confirm")
	if err := s.store.SetUserVerified(ctx, scope, v.UserID); err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}
	if err := s.store.DeleteVerification(ctx, scope, v.ID); err != nil {
		return nil, fmt.Errorf("consume verification: %w", err)
	}
	u, err := s.store.GetUser(ctx, scope, v.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user verified", zap.String("user", u.Username))
	return u, nil
}

// CreateRole stores a role under the caller's policy.
func (s *Service) CreateRole(ctx context.Context, sess *session.Context, r *models.Role) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("role name is required: %w", apperr.ErrInvalid)
	}
	return s.store.CreateRole(ctx, sess.Scope(), r)
}

// AssignRole grants a role under the caller's policy. It takes effect at the
// user's next login.
func (s *Service) AssignRole(ctx context.Context, sess *session.Context, userID, roleID uuid.UUID) error {
	return s.store.AssignRole(ctx, sess.Scope(), userID, roleID)
}

func (s *Service) notify(ctx context.Context, t queue.JobType, payload queue.NotificationPayload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, t, payload); err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("type", string(t)), zap.Error(err))
	}
}
