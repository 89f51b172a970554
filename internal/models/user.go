package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
)

// User represents a platform account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

// AccessFields exposes the user to access filters.
func (u *User) AccessFields() access.Fields {
	return access.Fields{access.FieldOwner: u.Username}
}

// Role is a named bundle of capability flags. A user's effective
// capabilities are the union of all their roles.
type Role struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Capabilities access.Capabilities `json:"capabilities"`
	Event        string              `json:"event,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Verification is a one-time account verification code.
type Verification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
