package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ausspeedruns/backend/internal/access"
)

// Submission statuses. Only submitted records remain editable by their owner.
const (
	SubmissionSubmitted = access.StatusSubmitted
	SubmissionAccepted  = "accepted"
	SubmissionBackup    = "backup"
	SubmissionRejected  = "rejected"
)

// Submission is a runner's game submission for an event.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	RunnerID  uuid.UUID `json:"runner_id"`
	Runner    string    `json:"runner"`
	EventID   uuid.UUID `json:"event_id"`
	Game      string    `json:"game"`
	Category  string    `json:"category"`
	Platform  string    `json:"platform"`
	Estimate  string    `json:"estimate"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessFields exposes the submission to access filters.
func (s *Submission) AccessFields() access.Fields {
	return access.Fields{access.FieldOwner: s.Runner, access.FieldStatus: s.Status}
}

// Volunteer job types.
const (
	JobHost       = "host"
	JobSocial     = "social"
	JobRunnerMgmt = "runMgmt"
	JobTech       = "tech"
)

// Volunteer is a volunteer application for an event.
type Volunteer struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"volunteer"`
	EventID        uuid.UUID `json:"event_id"`
	JobType        string    `json:"job_type"`
	EventHostTime  int       `json:"event_host_time"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	Experience     string    `json:"experience,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccessFields exposes the application to access filters.
func (v *Volunteer) AccessFields() access.Fields {
	return access.Fields{access.FieldOwner: v.Username, access.FieldStatus: v.Status}
}

// ValidJobType reports whether s is a known volunteer job.
func ValidJobType(s string) bool {
	switch s {
	case JobHost, JobSocial, JobRunnerMgmt, JobTech:
		return true
	}
	return false
}
