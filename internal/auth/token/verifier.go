package token

import (
	"context"

	"identity-service/internal/auth"
)

// Verifier turns a raw bearer token into normalized claims. Implementations
// check signature, issuer, audience and expiry; they make no user decisions.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (auth.Claims, error)
}
