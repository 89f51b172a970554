package access

import "fmt"

// Effect is the outcome class of a policy decision. The zero value denies.
type Effect int

const (
	EffectDeny Effect = iota
	EffectFilter
	EffectAllow
)

func (e Effect) String() string {
	switch e {
	case EffectAllow:
		return "allow"
	case EffectFilter:
		return "filtered-allow"
	default:
		return "deny"
	}
}

// Logical record fields a filter can constrain. Stores map them to columns.
const (
	FieldOwner     = "owner"
	FieldStatus    = "status"
	FieldPublished = "published"
)

// Condition is a single equality constraint.
type Condition struct {
	Field string
	Value any
}

// Filter is a conjunction of conditions.
type Filter []Condition

// Fields is the view of a record a filter is matched against.
type Fields map[string]any

// Match reports whether every condition holds for the record.
func (f Filter) Match(fields Fields) bool {
	for _, c := range f {
		v, ok := fields[c.Field]
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	s := ""
	for i, c := range f {
		if i > 0 {
			s += " AND "
		}
		s += fmt.Sprintf("%s == %v", c.Field, c.Value)
	}
	return s
}

// Decision is the result of evaluating a policy.
type Decision struct {
	Effect Effect
	Filter Filter
}

// Allow returns an unrestricted decision.
func Allow() Decision { return Decision{Effect: EffectAllow} }

// Deny refuses the operation entirely.
func Deny() Decision { return Decision{Effect: EffectDeny} }

// Filtered restricts the operation to records matching every condition.
func Filtered(conds ...Condition) Decision {
	return Decision{Effect: EffectFilter, Filter: Filter(conds)}
}

// Permits reports whether the decision admits the given record.
func (d Decision) Permits(fields Fields) bool {
	switch d.Effect {
	case EffectAllow:
		return true
	case EffectFilter:
		return d.Filter.Match(fields)
	default:
		return false
	}
}

func (d Decision) String() string {
	if d.Effect == EffectFilter {
		return fmt.Sprintf("%s(%s)", d.Effect, d.Filter)
	}
	return d.Effect.String()
}
