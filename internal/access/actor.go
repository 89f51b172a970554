// Package access decides, for every read and write against every record type,
// whether an actor may act and which records are visible to them.
//
// Evaluation is pure: it only consults the actor snapshot and the static
// policy table, so it can run on every request without I/O.
package access

import "github.com/google/uuid"

// Capability is a named permission flag carried by an actor.
type Capability string

const (
	CapAdmin         Capability = "admin"
	CapManageUsers   Capability = "canManageUsers"
	CapManageContent Capability = "canManageContent"
	CapRunner        Capability = "runner"
	CapVolunteer     Capability = "volunteer"
)

// Capabilities are additive boolean flags. No flag implies another.
type Capabilities struct {
	Admin         bool `json:"admin"`
	ManageUsers   bool `json:"canManageUsers"`
	ManageContent bool `json:"canManageContent"`
	Runner        bool `json:"runner"`
	Volunteer     bool `json:"volunteer"`
}

// Merge returns the union of both flag sets.
func (c Capabilities) Merge(o Capabilities) Capabilities {
	return Capabilities{
		Admin:         c.Admin || o.Admin,
		ManageUsers:   c.ManageUsers || o.ManageUsers,
		ManageContent: c.ManageContent || o.ManageContent,
		Runner:        c.Runner || o.Runner,
		Volunteer:     c.Volunteer || o.Volunteer,
	}
}

// Has reports whether the named capability is set.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapAdmin:
		return c.Admin
	case CapManageUsers:
		return c.ManageUsers
	case CapManageContent:
		return c.ManageContent
	case CapRunner:
		return c.Runner
	case CapVolunteer:
		return c.Volunteer
	}
	return false
}

// Actor is the identity and capability snapshot for one request.
// A nil *Actor is the anonymous actor.
type Actor struct {
	ID           uuid.UUID    `json:"id"`
	Username     string       `json:"username"`
	Capabilities Capabilities `json:"roles"`
	Events       []string     `json:"events,omitempty"`
}

// Identity is the value ownership filters compare against.
func (a *Actor) Identity() string {
	if a == nil {
		return ""
	}
	return a.Username
}

// Has reports whether a non-nil actor carries the capability.
func (a *Actor) Has(capability Capability) bool {
	return a != nil && a.Capabilities.Has(capability)
}

// MemberOf reports whether the actor is scoped to the event shortname.
func (a *Actor) MemberOf(event string) bool {
	if a == nil {
		return false
	}
	for _, e := range a.Events {
		if e == event {
			return true
		}
	}
	return false
}
