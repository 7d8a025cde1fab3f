package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSubject(t *testing.T) {
	rec := &Record{Username: "alice", PasswordHash: "$2a$10$hash"}

	require.NoError(t, rec.LinkSubject("sub-1"))
	assert.Equal(t, "sub-1", rec.SubjectID)
	assert.Equal(t, ExternallyManagedHash, rec.PasswordHash)

	// Re-linking the same subject is a no-op.
	require.NoError(t, rec.LinkSubject("sub-1"))

	// Linking a different subject violates the precondition.
	assert.ErrorIs(t, rec.LinkSubject("sub-2"), ErrAlreadyLinked)
	assert.Equal(t, "sub-1", rec.SubjectID)
}

func TestApplyProfile(t *testing.T) {
	rec := &Record{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      RoleUser,
	}

	assert.False(t, rec.ApplyProfile(Profile{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      RoleUser,
	}), "identical profile changes nothing")

	assert.True(t, rec.ApplyProfile(Profile{
		Email:     "a@corp.example",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      RoleAdmin,
	}))
	assert.Equal(t, "a@corp.example", rec.Email)
	assert.Equal(t, RoleAdmin, rec.Role)

	// Empty upstream email is ignored rather than erased.
	assert.True(t, rec.ApplyProfile(Profile{
		Email:    "",
		LastName: "Stone",
		Role:     RoleAdmin,
	}))
	assert.Equal(t, "a@corp.example", rec.Email)
	assert.Equal(t, "Stone", rec.LastName)
}

func TestMarkDeleted(t *testing.T) {
	rec := &Record{Active: true}
	rec.MarkDeleted()
	assert.True(t, rec.Deleted)
	assert.False(t, rec.Active)
}

func TestTouchLogin(t *testing.T) {
	rec := &Record{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec.TouchLogin(now)
	require.NotNil(t, rec.LastLoginAt)
	assert.Equal(t, now, *rec.LastLoginAt)
}
