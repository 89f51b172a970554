package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
)

// Event is a marathon event that runs, tickets and volunteers are scoped to.
type Event struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	Shortname            string     `json:"shortname"`
	Published            bool       `json:"published"`
	AcceptingSubmissions bool       `json:"accepting_submissions"`
	AcceptingTickets     bool       `json:"accepting_tickets"`
	AcceptingVolunteers  bool       `json:"accepting_volunteers"`
	AcceptingShirts      bool       `json:"accepting_shirts"`
	ScheduleReleased     bool       `json:"schedule_released"`
	Timezone             string     `json:"event_timezone,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	Raised               float64    `json:"raised"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// AccessFields exposes the event to access filters.
func (e *Event) AccessFields() access.Fields {
	return access.Fields{access.FieldPublished: e.Published}
}

// Run is a scheduled speedrun at an event.
type Run struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	Game          string     `json:"game"`
	Category      string     `json:"category"`
	Platform      string     `json:"platform"`
	Estimate      string     `json:"estimate"`
	Runners       []string   `json:"runners"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AccessFields exposes the run to access filters.
func (r *Run) AccessFields() access.Fields {
	return access.Fields{}
}
