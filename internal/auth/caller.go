// Package auth describes the already-authenticated caller of a request and
// decides what that caller may do.
package auth

import (
	"context"
	"strings"
)

// RoleAdmin is the administrator capability
const RoleAdmin = "ROLE_ADMIN"

// Caller is the identity attached to a request by the gateway that
// authenticated it. Credential is the bearer token, forwarded as-is to
// downstream services.
type Caller struct {
	Email      string
	Roles      []string
	Credential string
}

// IsAdmin reports whether the caller holds the administrator role
func (c Caller) IsAdmin() bool {
	for _, role := range c.Roles {
		r := strings.ToUpper(strings.TrimSpace(role))
		if r == RoleAdmin || r == "ADMIN" {
			return true
		}
	}
	return false
}

type callerKey struct{}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller stored in ctx
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
