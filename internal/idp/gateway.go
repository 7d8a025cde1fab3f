// Package idp defines the contract to the external identity provider's
// administrative API.
package idp

import (
	"context"
	"errors"
)

var (
	// ErrDuplicate signals the username is already claimed at the IdP.
	ErrDuplicate = errors.New("idp: identity already exists")

	// ErrNotFound signals the subject does not exist at the IdP. For
	// deletion this is non-fatal: the account is already gone.
	ErrNotFound = errors.New("idp: account not found")
)

// NewAccount is the payload for provisioning an account at the IdP.
type NewAccount struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Gateway is the administrative client to the external IdP. All calls are
// remote and bounded by the implementation's timeout; unexpected failures
// surface as plain errors the caller treats as infrastructure problems.
type Gateway interface {
	// CreateAccount provisions the account and returns its subject id.
	CreateAccount(ctx context.Context, acc NewAccount) (string, error)

	// DeleteAccount removes the subject. Returns ErrNotFound when the
	// subject is already gone.
	DeleteAccount(ctx context.Context, subjectID string) error

	// UsernameExists reports whether the username is live at the IdP.
	UsernameExists(ctx context.Context, username string) (bool, error)

	// AssignRealmRole grants a realm role to the subject. Best effort:
	// a missing role definition is not fatal.
	AssignRealmRole(ctx context.Context, subjectID, role string) error
}
