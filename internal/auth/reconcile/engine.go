// Package reconcile maps verified token claims onto local user records:
// existing identities are drift-synced, pre-existing local accounts are
// linked, and unknown subjects are provisioned just in time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity-service/internal/apperr"
	"identity-service/internal/auth"
	"identity-service/internal/user"

	"go.uber.org/zap"
)

// Engine performs claims-to-record reconciliation. It only reads
// already-verified claims and never calls the IdP.
type Engine struct {
	store user.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store user.Store, log *zap.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Reconcile resolves the claims to a local record, creating or updating it
// as needed. Repeated calls with identical claims converge to the same
// stored state. Store failures surface as infrastructure errors; there is
// no safe default identity to fall back to.
func (e *Engine) Reconcile(ctx context.Context, claims auth.Claims) (*user.Record, error) {
	if claims.SubjectID == "" {
		return nil, fmt.Errorf("%w: claims missing subject", apperr.ErrValidationFailed)
	}

	// 1. Existing owner of this subject id.
	rec, err := e.store.FindBySubjectID(ctx, claims.SubjectID)
	if err == nil {
		return e.syncExisting(ctx, rec, claims)
	}
	if !errors.Is(err, user.ErrNoRecord) {
		return nil, fmt.Errorf("%w: subject lookup: %v", apperr.ErrInfrastructure, err)
	}

	// 2. Pre-existing local account not yet linked to the IdP.
	if claims.Username != "" {
		rec, err = e.store.FindByUsername(ctx, claims.Username, false)
		if err == nil {
			return e.linkExisting(ctx, rec, claims)
		}
		if !errors.Is(err, user.ErrNoRecord) {
			return nil, fmt.Errorf("%w: username lookup: %v", apperr.ErrInfrastructure, err)
		}
	}

	// 3. First sight of this subject: provision a new record.
	return e.provision(ctx, claims)
}

func (e *Engine) syncExisting(ctx context.Context, rec *user.Record, claims auth.Claims) (*user.Record, error) {
	changed := rec.ApplyProfile(claims.Profile())
	rec.TouchLogin(e.now())

	saved, err := e.store.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: sync save: %v", apperr.ErrInfrastructure, err)
	}

	if changed {
		e.log.Info("synced user profile from token",
			zap.Int64("user_id", saved.ID),
			zap.String("username", saved.Username),
		)
	}
	return saved, nil
}

func (e *Engine) linkExisting(ctx context.Context, rec *user.Record, claims auth.Claims) (*user.Record, error) {
	if err := rec.LinkSubject(claims.SubjectID); err != nil {
		// The claimed username already belongs to a different identity.
		return nil, fmt.Errorf("%w: link %q: %v", apperr.ErrInfrastructure, rec.Username, err)
	}

	rec.ApplyProfile(claims.Profile())
	rec.TouchLogin(e.now())

	saved, err := e.store.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: link save: %v", apperr.ErrInfrastructure, err)
	}

	e.log.Info("linked existing user to external identity",
		zap.Int64("user_id", saved.ID),
		zap.String("username", saved.Username),
		zap.String("subject_id", claims.SubjectID),
	)
	return saved, nil
}

func (e *Engine) provision(ctx context.Context, claims auth.Claims) (*user.Record, error) {
	username := claims.Username
	if username == "" {
		username = claims.SubjectID
	}
	email := claims.Email
	if email == "" {
		email = username + "@keycloak.local"
	}

	rec := &user.Record{
		Username:     username,
		Email:        email,
		SubjectID:    claims.SubjectID,
		FirstName:    claims.FirstName,
		LastName:     claims.LastName,
		Role:         auth.RoleFromClaims(claims.Roles),
		Active:       true,
		Verified:     true, // the IdP already verified the principal
		PasswordHash: user.ExternallyManagedHash,
	}
	rec.TouchLogin(e.now())

	saved, err := e.store.Save(ctx, rec)
	if errors.Is(err, user.ErrDuplicate) {
		// A concurrent request provisioned the same subject first;
		// converge on the winner instead of surfacing the conflict.
		rec, ferr := e.store.FindBySubjectID(ctx, claims.SubjectID)
		if ferr != nil {
			return nil, fmt.Errorf("%w: provisioning conflict: %v", apperr.ErrInfrastructure, err)
		}
		return e.syncExisting(ctx, rec, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: provisioning save: %v", apperr.ErrInfrastructure, err)
	}

	e.log.Info("provisioned new user from token",
		zap.Int64("user_id", saved.ID),
		zap.String("username", saved.Username),
		zap.String("subject_id", claims.SubjectID),
		zap.String("role", string(saved.Role)),
	)
	return saved, nil
}
