package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Create/Commit helpers when the target row does
// not exist. Lookup methods return (nil, nil) for absence instead, so
// callers can distinguish "no such user" from a directory failure.
var ErrNotFound = errors.New("directory: not found")

// Directory is the contract the reconciler and resolvers consume. Lookups
// return (nil, nil) when nothing matches.
type Directory interface {
	// FindUser looks up a user by name and auth type across all
	// organizations.
	FindUser(ctx context.Context, name, authType string) (*User, error)

	// FindUserInOrg looks up a user by name within one organization.
	FindUserInOrg(ctx context.Context, orgID, name string) (*User, error)

	// CreateUser creates a user under the organization and returns it with
	// its assigned id.
	CreateUser(ctx context.Context, orgID string, u *User) (*User, error)

	// Commit persists the named fields of an already-loaded user. Fields
	// are "email", "groups", "auth_type", "yubico_id".
	Commit(ctx context.Context, u *User, fields ...string) error

	// FindOrgByID resolves an organization by id.
	FindOrgByID(ctx context.Context, id string) (*Organization, error)

	// FindOrgByName resolves an organization by exact name.
	FindOrgByName(ctx context.Context, name string) (*Organization, error)

	// CreateOneTimeLink mints a single-use login link for the user.
	CreateOneTimeLink(ctx context.Context, u *User) (*Link, error)
}
