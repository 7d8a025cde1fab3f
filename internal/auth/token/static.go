package token

import (
	"context"
	"errors"
	"fmt"

	"identity-service/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

// StaticVerifier validates HMAC-signed tokens against a shared key. It
// exists for local development and tests, where no discovery endpoint is
// available; production deployments configure the OIDC verifier instead.
type StaticVerifier struct {
	key []byte
}

func NewStaticVerifier(key string) (*StaticVerifier, error) {
	if key == "" {
		return nil, errors.New("static verifier requires a signing key")
	}
	return &StaticVerifier{key: []byte(key)}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, rawToken string) (auth.Claims, error) {
	parsed, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("token verification failed: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Claims{}, errors.New("unexpected token claims type")
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return auth.Claims{}, errors.New("token missing sub claim")
	}

	claims := auth.Claims{
		SubjectID: sub,
		Username:  stringClaim(mapClaims, "preferred_username"),
		Email:     stringClaim(mapClaims, "email"),
		FirstName: stringClaim(mapClaims, "given_name"),
		LastName:  stringClaim(mapClaims, "family_name"),
	}

	if realmAccess, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realmAccess["roles"].([]interface{}); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok {
					claims.Roles = append(claims.Roles, s)
				}
			}
		}
	}

	return claims, nil
}

func stringClaim(m jwt.MapClaims, key string) string {
	s, _ := m[key].(string)
	return s
}
