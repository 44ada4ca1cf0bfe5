// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated user information.
// CompanyID and BranchID scope every operation the user performs;
// a super admin has neither and may act across companies.
type UserContext struct {
	UserID       string
	Email        string
	CompanyID    string
	BranchID     string
	Roles        []string
	IsSuperAdmin bool
	SessionID    string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context, or nil if not set.
func GetUser(ctx context.Context) *UserContext {
	if user, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return user
	}
	return nil
}

// HasRole reports whether the user carries the given role claim.
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanAccessBranch reports whether the user may operate on the given branch.
// Company admins reach every branch of their company; branch users only their own.
func (u *UserContext) CanAccessBranch(companyID, branchID string) bool {
	if u.IsSuperAdmin {
		return true
	}
	if u.CompanyID != companyID {
		return false
	}
	if u.BranchID == "" {
		// Company-level user (admin/manager without branch pinning).
		return true
	}
	return u.BranchID == branchID
}
