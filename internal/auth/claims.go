package auth

import "identity-service/internal/user"

// Claims is the normalized, already-verified token payload handed to
// reconciliation. It contains facts only, no decisions.
type Claims struct {
	SubjectID string   // stable IdP identifier (sub)
	Username  string   // preferred_username
	Email     string
	FirstName string   // given_name
	LastName  string   // family_name
	Roles     []string // realm role assertions
}

// RoleFromClaims maps role assertions to the highest matching local role.
// Unrecognized strings are ignored; no recognized claim yields USER.
func RoleFromClaims(roles []string) user.Role {
	mapped := user.RoleUser
	for _, r := range roles {
		switch r {
		case "ADMIN":
			return user.RoleAdmin
		case "DEVELOPER":
			mapped = user.RoleDeveloper
		}
	}
	return mapped
}

// Profile derives the sync-relevant attribute set from the claims.
func (c Claims) Profile() user.Profile {
	return user.Profile{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Role:      RoleFromClaims(c.Roles),
	}
}
