package access

// RecordType names a governed list.
type RecordType string

const (
	RecordUser         RecordType = "User"
	RecordRole         RecordType = "Role"
	RecordEvent        RecordType = "Event"
	RecordPost         RecordType = "Post"
	RecordRun          RecordType = "Run"
	RecordIncentive    RecordType = "Incentive"
	RecordSubmission   RecordType = "Submission"
	RecordVolunteer    RecordType = "Volunteer"
	RecordTicket       RecordType = "Ticket"
	RecordShirtOrder   RecordType = "ShirtOrder"
	RecordVerification RecordType = "Verification"
)

// Operation is the class of access being requested.
type Operation string

const (
	OpQuery  Operation = "query"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// StatusSubmitted is the only state in which owners may still edit a record.
const StatusSubmitted = "submitted"

type shape int

const (
	// shapePublished: readable when published, mutable only by managers.
	shapePublished shape = iota
	// shapePublic: readable by everyone, mutable only by managers.
	shapePublic
	// shapeSelfService: owners read and create their own, edit while submitted.
	shapeSelfService
	// shapeIssued: owners read their own; mutations go through issuance.
	shapeIssued
	// shapeAccount: the user's own account record.
	shapeAccount
	// shapeRestricted: managers only.
	shapeRestricted
)

type policy struct {
	manager Capability
	shape   shape
}

var policies = map[RecordType]policy{
	RecordEvent:        {manager: CapAdmin, shape: shapePublished},
	RecordPost:         {manager: CapManageContent, shape: shapePublished},
	RecordRun:          {manager: CapManageContent, shape: shapePublic},
	RecordIncentive:    {manager: CapManageContent, shape: shapePublic},
	RecordSubmission:   {manager: CapManageContent, shape: shapeSelfService},
	RecordVolunteer:    {manager: CapManageContent, shape: shapeSelfService},
	RecordTicket:       {manager: CapManageContent, shape: shapeIssued},
	RecordShirtOrder:   {manager: CapManageContent, shape: shapeIssued},
	RecordUser:         {manager: CapManageUsers, shape: shapeAccount},
	RecordRole:         {manager: CapManageUsers, shape: shapeRestricted},
	RecordVerification: {manager: CapManageUsers, shape: shapeRestricted},
}

// Manager returns the capability that grants unrestricted access to the type.
func Manager(rt RecordType) (Capability, bool) {
	p, ok := policies[rt]
	return p.manager, ok
}

// Evaluate maps (actor, record type, operation) to a decision.
// Rules apply in a fixed order: anonymous rules, manager capability,
// ownership and publication rules, then deny.
func Evaluate(actor *Actor, rt RecordType, op Operation) Decision {
	p, ok := policies[rt]
	if !ok {
		return Deny()
	}
	if actor == nil {
		return anonymous(p, op)
	}
	if actor.Has(p.manager) {
		return Allow()
	}

	owner := Condition{Field: FieldOwner, Value: actor.Identity()}
	switch p.shape {
	case shapePublished:
		if op == OpQuery {
			return Filtered(Condition{Field: FieldPublished, Value: true})
		}
	case shapePublic:
		if op == OpQuery {
			return Allow()
		}
	case shapeSelfService:
		switch op {
		case OpQuery, OpCreate:
			return Filtered(owner)
		case OpUpdate, OpDelete:
			return Filtered(owner, Condition{Field: FieldStatus, Value: StatusSubmitted})
		}
	case shapeIssued:
		if op == OpQuery {
			return Filtered(owner)
		}
	case shapeAccount:
		if op == OpQuery || op == OpUpdate {
			return Filtered(owner)
		}
	}
	return Deny()
}

func anonymous(p policy, op Operation) Decision {
	switch {
	case p.shape == shapePublished && op == OpQuery:
		return Filtered(Condition{Field: FieldPublished, Value: true})
	case p.shape == shapePublic && op == OpQuery:
		return Allow()
	case p.shape == shapeAccount && op == OpCreate:
		// sign-up
		return Allow()
	}
	return Deny()
}

// Authorize evaluates the policy and matches it against a concrete record.
func Authorize(actor *Actor, rt RecordType, op Operation, fields Fields) bool {
	return Evaluate(actor, rt, op).Permits(fields)
}
