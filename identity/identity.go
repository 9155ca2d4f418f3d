// Package identity supplies the current user's identity and access level,
// consulted before privileged operations such as remote media deletion.
package identity

import (
	"context"
	"errors"
)

// Access is an authorization tier gating privileged operations.
type Access string

const (
	AccessAdmin  Access = "admin"
	AccessMember Access = "member"
	AccessUser   Access = "user"
)

// Valid reports whether a is one of the known access tiers.
func (a Access) Valid() bool {
	switch a {
	case AccessAdmin, AccessMember, AccessUser:
		return true
	}
	return false
}

// CanManageMedia reports whether the tier permits remote media deletion.
func (a Access) CanManageMedia() bool {
	return a == AccessAdmin || a == AccessMember
}

// CanManageRoles reports whether the tier permits changing other users' roles.
func (a Access) CanManageRoles() bool {
	return a == AccessAdmin
}

// User is a platform user record.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Access      Access `json:"access"`
}

// Provider resolves the authenticated user from the auth collaborator.
type Provider interface {
	// CurrentUser returns the signed-in user, or nil when signed out.
	CurrentUser(ctx context.Context) (*User, error)

	// AccessLevel returns the current access tier for a uid.
	AccessLevel(ctx context.Context, uid string) (Access, error)
}

// Sentinel errors.
var (
	// ErrUnauthorized is returned when the acting user lacks the access
	// tier an operation requires.
	ErrUnauthorized = errors.New("identity: unauthorized")
)
