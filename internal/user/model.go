package user

import (
	"errors"
	"time"
)

// Role is the local authorization level. Ordering matters: ADMIN outranks
// DEVELOPER outranks USER.
type Role string

const (
	RoleUser      Role = "USER"
	RoleDeveloper Role = "DEVELOPER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleDeveloper:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the role meets the given level.
func (r Role) AtLeast(level Role) bool {
	return r.rank() >= level.rank()
}

// ExternallyManagedHash is the password-hash sentinel stored for records
// whose credentials are owned by the IdP.
const ExternallyManagedHash = "KEYCLOAK_MANAGED"

// ErrAlreadyLinked is returned by LinkSubject when a record is already
// bound to an IdP subject.
var ErrAlreadyLinked = errors.New("record already linked to a subject")

// Record is the local representation of an identity. At most one
// non-deleted record exists per username, per email and per subject id;
// the store's unique constraints enforce this.
type Record struct {
	ID            int64
	Username      string
	Email         string
	SubjectID     string // IdP subject id; empty for locally-managed accounts
	FirstName     string
	LastName      string
	PhoneNumber   string
	Country       string
	City          string
	State         string
	StreetAddress string
	PostalCode    string
	Role          Role
	Active        bool
	Verified      bool
	PasswordHash  string
	LastLoginAt   *time.Time
	Deleted       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExternallyManaged reports whether the IdP owns this record's credentials.
func (r *Record) ExternallyManaged() bool {
	return r.SubjectID != ""
}

// LinkSubject binds a previously local-only record to an IdP subject.
// Precondition: the record must not already be linked. Linking also hands
// credential ownership to the IdP.
func (r *Record) LinkSubject(subjectID string) error {
	if r.SubjectID != "" {
		if r.SubjectID == subjectID {
			return nil // idempotent re-link
		}
		return ErrAlreadyLinked
	}
	r.SubjectID = subjectID
	r.PasswordHash = ExternallyManagedHash
	return nil
}

// Profile carries the upstream attributes a token sync may change.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// ApplyProfile copies changed upstream attributes onto the record and
// reports whether anything changed. An empty upstream email is ignored;
// the role is never lowered below USER because the mapping already floors it.
func (r *Record) ApplyProfile(p Profile) bool {
	changed := false

	if p.Email != "" && p.Email != r.Email {
		r.Email = p.Email
		changed = true
	}
	if p.FirstName != r.FirstName {
		r.FirstName = p.FirstName
		changed = true
	}
	if p.LastName != r.LastName {
		r.LastName = p.LastName
		changed = true
	}
	if p.Role != "" && p.Role != r.Role {
		r.Role = p.Role
		changed = true
	}

	return changed
}

// TouchLogin refreshes the last-login timestamp.
func (r *Record) TouchLogin(now time.Time) {
	t := now.UTC()
	r.LastLoginAt = &t
}

// MarkDeleted soft-deletes the record. The row stays behind so the
// username and email remain claimed.
func (r *Record) MarkDeleted() {
	r.Deleted = true
	r.Active = false
}
