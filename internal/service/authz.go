package service

import "github.com/safar/framely/internal/auth"

// Requirement is a predicate a caller must satisfy.
type Requirement func(caller *auth.Caller) bool

func RequireAuthenticated() Requirement {
	return func(*auth.Caller) bool { return true }
}

func RequireAdmin() Requirement {
	return func(caller *auth.Caller) bool { return caller.IsAdmin() }
}

func RequireOwnerOrAdmin(ownerID string) Requirement {
	return func(caller *auth.Caller) bool { return CanAct(caller, ownerID) }
}

// Authorize fails with ErrUnauthorized when there is no caller identity and
// with ErrForbidden when the caller does not meet req.
func Authorize(caller *auth.Caller, req Requirement) error {
	if !caller.Authenticated() {
		return newError(ErrUnauthorized, "authentication required")
	}
	if !req(caller) {
		return newError(ErrForbidden, "you do not have access to this resource")
	}
	return nil
}

// CanAct reports whether caller may act on a resource owned by ownerID.
func CanAct(caller *auth.Caller, ownerID string) bool {
	if !caller.Authenticated() {
		return false
	}
	return caller.IsAdmin() || caller.UserID == ownerID
}
