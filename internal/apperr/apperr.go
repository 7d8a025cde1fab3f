// Package apperr defines the error kinds shared across service boundaries.
// Packages wrap these sentinels with fmt.Errorf("...: %w", ...) so callers
// can branch with errors.Is without depending on concrete collaborators.
package apperr

import "errors"

var (
	// ErrDuplicateIdentity signals a username or email already claimed,
	// including by soft-deleted records.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrNotFound signals no matching non-deleted record.
	ErrNotFound = errors.New("not found")

	// ErrAuthenticationFailed signals a secret mismatch or missing credential.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrValidationFailed signals a malformed or weak input.
	ErrValidationFailed = errors.New("validation failed")

	// ErrAccessDenied signals the caller does not own the target record.
	ErrAccessDenied = errors.New("access denied")

	// ErrInfrastructure signals the IdP or the local store is unreachable
	// or returned an unexpected failure.
	ErrInfrastructure = errors.New("infrastructure error")
)
