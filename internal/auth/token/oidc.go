package token

import (
	"context"
	"errors"
	"fmt"

	"identity-service/internal/auth"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates bearer tokens against the IdP's published keys,
// discovered from the realm issuer URL, e.g.
// http://localhost:8081/realms/identity
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	if issuer == "" || clientID == "" {
		return nil, errors.New("oidc verifier config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (auth.Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("token verification failed: %w", err)
	}

	var payload struct {
		Subject           string `json:"sub"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
		RealmAccess       struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return auth.Claims{}, fmt.Errorf("token claims parse failed: %w", err)
	}

	if payload.Subject == "" {
		return auth.Claims{}, errors.New("token missing sub claim")
	}

	return auth.Claims{
		SubjectID: payload.Subject,
		Username:  payload.PreferredUsername,
		Email:     payload.Email,
		FirstName: payload.GivenName,
		LastName:  payload.FamilyName,
		Roles:     payload.RealmAccess.Roles,
	}, nil
}
