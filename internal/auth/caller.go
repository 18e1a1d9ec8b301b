package auth

import (
	"context"
	"strings"

	"github.com/safar/framely/internal/models"
)

// Caller is the verified identity attached to a request.
type Caller struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

func (c *Caller) IsAdmin() bool {
	return c != nil && strings.EqualFold(c.Role, models.RoleAdmin)
}

// Authenticated reports whether the caller carries a usable identity.
func (c *Caller) Authenticated() bool {
	return c != nil && strings.TrimSpace(c.UserID) != ""
}

type contextKey string

const callerContextKey contextKey = "github.com/safar/framely/internal/auth/caller"

func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the caller stored by Authenticate. The returned
// pointer is nil for anonymous requests.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey).(*Caller)
	return caller
}
