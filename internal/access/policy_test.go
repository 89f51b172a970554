package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func actor(name string, caps Capabilities) *Actor {
	return &Actor{ID: uuid.New(), Username: name, Capabilities: caps}
}

func TestEvaluate_Anonymous(t *testing.T) {
	published := Filtered(Condition{Field: FieldPublished, Value: true})

	assert.Equal(t, published, Evaluate(nil, RecordEvent, OpQuery))
	assert.Equal(t, published, Evaluate(nil, RecordPost, OpQuery))
	assert.Equal(t, Allow(), Evaluate(nil, RecordRun, OpQuery))
	assert.Equal(t, Allow(), Evaluate(nil, RecordUser, OpCreate))

	for _, rt := range []RecordType{RecordSubmission, RecordVolunteer, RecordTicket, RecordShirtOrder, RecordVerification, RecordRole} {
		for _, op := range []Operation{OpQuery, OpCreate, OpUpdate, OpDelete} {
			assert.Equal(t, EffectDeny, Evaluate(nil, rt, op).Effect, "%s %s", rt, op)
		}
	}
	assert.Equal(t, EffectDeny, Evaluate(nil, RecordEvent, OpCreate).Effect)
}

func TestEvaluate_Event(t *testing.T) {
	admin := actor("admin", Capabilities{Admin: true})
	content := actor("editor", Capabilities{ManageContent: true})

	for _, op := range []Operation{OpQuery, OpCreate, OpUpdate, OpDelete} {
		assert.Equal(t, Allow(), Evaluate(admin, RecordEvent, op))
	}
	// content management does not reach events
	assert.Equal(t, EffectFilter, Evaluate(content, RecordEvent, OpQuery).Effect)
	assert.Equal(t, Deny(), Evaluate(content, RecordEvent, OpUpdate))
}

func TestEvaluate_SelfService(t *testing.T) {
	runner := actor("speedy", Capabilities{Runner: true})

	q := Evaluate(runner, RecordSubmission, OpQuery)
	assert.Equal(t, Filtered(Condition{Field: FieldOwner, Value: "speedy"}), q)

	u := Evaluate(runner, RecordSubmission, OpUpdate)
	assert.Equal(t, EffectFilter, u.Effect)
	assert.Len(t, u.Filter, 2)

	own := Fields{FieldOwner: "speedy", FieldStatus: StatusSubmitted}
	accepted := Fields{FieldOwner: "speedy", FieldStatus: "accepted"}
	other := Fields{FieldOwner: "someone", FieldStatus: StatusSubmitted}

	assert.True(t, Authorize(runner, RecordSubmission, OpUpdate, own))
	assert.True(t, Authorize(runner, RecordSubmission, OpDelete, own))
	assert.False(t, Authorize(runner, RecordSubmission, OpUpdate, accepted))
	assert.False(t, Authorize(runner, RecordSubmission, OpDelete, accepted))
	assert.True(t, Authorize(runner, RecordSubmission, OpQuery, accepted))
	assert.False(t, Authorize(runner, RecordSubmission, OpQuery, other))
	assert.False(t, Authorize(runner, RecordVolunteer, OpUpdate, other))
}

func TestEvaluate_Issued(t *testing.T) {
	u := actor("buyer", Capabilities{})
	assert.Equal(t, Filtered(Condition{Field: FieldOwner, Value: "buyer"}), Evaluate(u, RecordTicket, OpQuery))
	assert.Equal(t, Deny(), Evaluate(u, RecordTicket, OpCreate))
	assert.Equal(t, Deny(), Evaluate(u, RecordShirtOrder, OpUpdate))
}

func TestEvaluate_Accounts(t *testing.T) {
	u := actor("someone", Capabilities{})
	mgr := actor("mod", Capabilities{ManageUsers: true})

	assert.Equal(t, EffectFilter, Evaluate(u, RecordUser, OpUpdate).Effect)
	assert.Equal(t, Deny(), Evaluate(u, RecordUser, OpDelete))
	assert.Equal(t, Deny(), Evaluate(u, RecordVerification, OpQuery))
	assert.Equal(t, Deny(), Evaluate(u, RecordRole, OpQuery))
	assert.Equal(t, Allow(), Evaluate(mgr, RecordVerification, OpQuery))
	assert.Equal(t, Allow(), Evaluate(mgr, RecordUser, OpDelete))
}

func TestEvaluate_MostPermissiveWins(t *testing.T) {
	both := actor("both", Capabilities{Runner: true, Volunteer: true, ManageContent: true})
	assert.Equal(t, Allow(), Evaluate(both, RecordSubmission, OpDelete))
	assert.True(t, Authorize(both, RecordSubmission, OpUpdate, Fields{FieldOwner: "other", FieldStatus: "accepted"}))
}

func TestEvaluate_UnknownType(t *testing.T) {
	admin := actor("root", Capabilities{Admin: true, ManageUsers: true, ManageContent: true})
	assert.Equal(t, Deny(), Evaluate(admin, RecordType("Nope"), OpQuery))
}

func TestScope(t *testing.T) {
	s := Elevated("")
	assert.True(t, s.IsElevated())
	assert.Equal(t, "unspecified", s.Reason())
	assert.Equal(t, Allow(), s.Decide(RecordVerification, OpQuery))

	anon := ForActor(nil)
	assert.False(t, anon.IsElevated())
	assert.Equal(t, Deny(), anon.Decide(RecordVerification, OpQuery))
}

func TestCapabilitiesMerge(t *testing.T) {
	c := Capabilities{Runner: true}.Merge(Capabilities{ManageContent: true})
	assert.True(t, c.Runner)
	assert.True(t, c.ManageContent)
	assert.False(t, c.Admin)
}
