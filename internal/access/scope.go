package access

// Scope is the access context handed to the Resource Store with every call.
// It is either bound to a session actor (possibly anonymous) or elevated,
// in which case the store skips policy evaluation.
type Scope struct {
	actor    *Actor
	elevated bool
	reason   string
}

// ForActor returns a scope governed by the actor's policy decisions.
func ForActor(actor *Actor) Scope {
	return Scope{actor: actor}
}

// Elevated returns a scope that bypasses policy evaluation. It must only be
// requested by trusted server-side code, at the call site that needs it, with
// a reason that ends up in the store's audit log.
func Elevated(reason string) Scope {
	if reason == "" {
		reason = "unspecified"
	}
	return Scope{elevated: true, reason: reason}
}

// Actor returns the session actor, nil for anonymous and elevated scopes.
func (s Scope) Actor() *Actor { return s.actor }

// IsElevated reports whether policy evaluation is bypassed.
func (s Scope) IsElevated() bool { return s.elevated }

// Reason is the audit reason given for elevation.
func (s Scope) Reason() string { return s.reason }

// Decide evaluates the policy for this scope.
func (s Scope) Decide(rt RecordType, op Operation) Decision {
	if s.elevated {
		return Allow()
	}
	return Evaluate(s.actor, rt, op)
}
