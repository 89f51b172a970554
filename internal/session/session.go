// Package session resolves transport tokens into per-request actor snapshots.
// Tokens are stateless HS256 JWTs carrying the identity and capability flags,
// so resolution does no I/O and the snapshot cannot change mid-request.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/models"
)

// ErrInvalidToken is returned by Parse for malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the actor snapshot.
type Claims struct {
	Username     string              `json:"username"`
	Capabilities access.Capabilities `json:"roles"`
	Events       []string            `json:"events,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and resolves session tokens.
type Manager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewManager creates a session manager.
func NewManager(secret string, maxAge time.Duration) *Manager {
	return &Manager{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Snapshot folds the user's roles into an actor. Capabilities are the union
// of every role; event-scoped roles add the event to the actor's memberships.
func Snapshot(u *models.User, roles []models.Role) *access.Actor {
	a := &access.Actor{ID: u.ID, Username: u.Username}
	seen := map[string]bool{}
	for _, r := range roles {
		a.Capabilities = a.Capabilities.Merge(r.Capabilities)
		if r.Event != "" && !seen[r.Event] {
			seen[r.Event] = true
			a.Events = append(a.Events, r.Event)
		}
	}
	return a
}

// Issue signs a token for the actor.
func (m *Manager) Issue(a *access.Actor) (string, error) {
	now := m.now()
	claims := Claims{
		Username:     a.Username,
		Capabilities: a.Capabilities,
		Events:       a.Events,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the actor it carries.
func (m *Manager) Parse(tokenString string) (*access.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &access.Actor{
		ID:           id,
		Username:     claims.Username,
		Capabilities: claims.Capabilities,
		Events:       claims.Events,
	}, nil
}

// Resolve never fails: a missing or unusable token yields the anonymous
// context.
func (m *Manager) Resolve(tokenString string) *Context {
	if tokenString == "" {
		return Anonymous()
	}
	a, err := m.Parse(tokenString)
	if err != nil {
		return Anonymous()
	}
	return &Context{actor: a}
}
