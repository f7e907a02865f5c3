// internal/app/system/authz/errors.go
package authz

import "errors"

// Access failures. Handlers map them to responses with WriteError.
var (
	// ErrUnauthenticated means there is no signed-in user.
	ErrUnauthenticated = errors.New("authz: not signed in")
	// ErrNoActiveOrg means the session has no active organization, the user
	// is not a member of it, or it no longer exists.
	ErrNoActiveOrg = errors.New("authz: no active organization")
	// ErrForbidden means the effective role is not allowed.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrNotAMember is returned by the resolver when no Member row exists.
	ErrNotAMember = errors.New("authz: not a member of the organization")
)
