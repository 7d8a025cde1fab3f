package credentials

import (
	"testing"

	"identity-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Str0ngpass", wantErr: false},
		{name: "too short", password: "Ab1", wantErr: true},
		{name: "no upper", password: "weakpass1", wantErr: true},
		{name: "no lower", password: "WEAKPASS1", wantErr: true},
		{name: "no digit", password: "Weakpassword", wantErr: true},
		{name: "exactly eight", password: "Abcdefg1", wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePolicy(tc.password)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidationFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashAndVerifyRoundtrip(t *testing.T) {
	hash, err := HashPassword("Str0ngpass")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, VerifyPassword(hash, "Str0ngpass"))
	assert.Error(t, VerifyPassword(hash, "WrongPass1"))
}
