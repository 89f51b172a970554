package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
)

// Payment methods accepted for issued resources.
const (
	MethodStripe = "stripe"
	MethodBank   = "bank"
	MethodOther  = "other"
)

// ValidMethod reports whether s is a known payment method.
func ValidMethod(s string) bool {
	switch s {
	case MethodStripe, MethodBank, MethodOther:
		return true
	}
	return false
}

// Ticket is an event ticket. It is created unpaid and flips to paid exactly
// once, keyed by its payment reference.
type Ticket struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	EventID          uuid.UUID `json:"event_id"`
	Event            string    `json:"event"`
	NumberOfTickets  int       `json:"number_of_tickets"`
	Method           string    `json:"method"`
	PaymentReference string    `json:"payment_reference"`
	Paid             bool      `json:"paid"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccessFields exposes the ticket to access filters.
func (t *Ticket) AccessFields() access.Fields {
	return access.Fields{access.FieldOwner: t.Username}
}

// Shirt sizes and colours.
var (
	ShirtSizes   = []string{"xs", "s", "m", "l", "xl", "2xl", "3xl"}
	ShirtColours = []string{"blue", "purple", "white"}
)

// ShirtOrder is a merchandise order with the same unpaid -> paid lifecycle as Ticket.
type ShirtOrder struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	Size             string    `json:"size"`
	Colour           string    `json:"colour"`
	Method           string    `json:"method"`
	PaymentReference string    `json:"payment_reference"`
	Paid             bool      `json:"paid"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccessFields exposes the order to access filters.
func (o *ShirtOrder) AccessFields() access.Fields {
	return access.Fields{access.FieldOwner: o.Username}
}

// ValidShirt reports whether size and colour are offered.
func ValidShirt(size, colour string) bool {
	return contains(ShirtSizes, size) && contains(ShirtColours, colour)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
