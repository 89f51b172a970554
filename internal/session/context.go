package session

import (
	"github.com/gin-gonic/gin"

	"github.com/ausspeedruns/backend/internal/access"
)

const ginKey = "session"

// Context is the request-scoped session. The actor is nil when anonymous.
type Context struct {
	actor *access.Actor
}

// Anonymous is the context of a request without a usable session.
func Anonymous() *Context { return &Context{} }

// WithActor builds a context for an already resolved actor.
func WithActor(a *access.Actor) *Context { return &Context{actor: a} }

// Actor returns the snapshot, nil when anonymous.
func (c *Context) Actor() *access.Actor {
	if c == nil {
		return nil
	}
	return c.actor
}

// Scope is the policy-governed store scope for this session.
func (c *Context) Scope() access.Scope { return access.ForActor(c.Actor()) }

// Elevate returns a scope that bypasses the access policy. Call it only at
// the store call that needs it, after the caller has been authenticated by
// other means.
func (c *Context) Elevate(reason string) access.Scope { return access.Elevated(reason) }

// Set stores the session on the gin context.
func Set(c *gin.Context, s *Context) { c.Set(ginKey, s) }

// From returns the session stored on the gin context, or the anonymous one.
func From(c *gin.Context) *Context {
	if v, ok := c.Get(ginKey); ok {
		if s, ok := v.(*Context); ok && s != nil {
			return s
		}
	}
	return Anonymous()
}
