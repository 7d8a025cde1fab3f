// Package lifecycle drives registration and deletion across the IdP and
// the local store, keeping the two systems from diverging on partial
// failure.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"identity-service/internal/apperr"
	"identity-service/internal/auth/credentials"
	"identity-service/internal/event"
	"identity-service/internal/idp"
	"identity-service/internal/user"

	"go.uber.org/zap"
)

// eventQueue is the slice of the async publisher the orchestrator needs.
type eventQueue interface {
	Enqueue(e event.Envelope)
}

// Registration is the profile supplied at sign-up. The secret travels
// separately.
type Registration struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	Country       string
	City          string
	State         string
	StreetAddress string
	PostalCode    string
}

type Orchestrator struct {
	store   user.Store
	gateway idp.Gateway
	events  eventQueue
	log     *zap.Logger
}

func NewOrchestrator(store user.Store, gateway idp.Gateway, events eventQueue, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		events:  events,
		log:     log,
	}
}

// Register provisions the account at the IdP first, then persists the
// local record carrying the returned subject id. The bcrypt digest of the
// secret is kept locally as a fallback/audit artifact even though the IdP
// owns live authentication.
func (o *Orchestrator) Register(ctx context.Context, reg Registration, secret string) (*user.Record, error) {
	// Soft-deleted records keep their username and email claimed, so the
	// local checks include them.
	taken, err := o.store.ExistsByUsername(ctx, reg.Username, true)
	if err != nil {
		return nil, fmt.Errorf("%w: username check: %v", apperr.ErrInfrastructure, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username %q", apperr.ErrDuplicateIdentity, reg.Username)
	}

	taken, err = o.store.ExistsByEmail(ctx, reg.Email, true)
	if err != nil {
		return nil, fmt.Errorf("%w: email check: %v", apperr.ErrInfrastructure, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: email %q", apperr.ErrDuplicateIdentity, reg.Email)
	}

	// The IdP is the authoritative username namespace; registration cannot
	// proceed without its answer.
	exists, err := o.gateway.UsernameExists(ctx, reg.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: idp username check: %v", apperr.ErrInfrastructure, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username %q", apperr.ErrDuplicateIdentity, reg.Username)
	}

	if err := credentials.ValidatePolicy(secret); err != nil {
		return nil, err
	}

	digest, err := credentials.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: hash secret: %v", apperr.ErrInfrastructure, err)
	}

	subjectID, err := o.gateway.CreateAccount(ctx, idp.NewAccount{
		Username:  reg.Username,
		Email:     reg.Email,
		Password:  secret,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	})
	if errors.Is(err, idp.ErrDuplicate) {
		return nil, fmt.Errorf("%w: username %q", apperr.ErrDuplicateIdentity, reg.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: idp create: %v", apperr.ErrInfrastructure, err)
	}

	if err := o.gateway.AssignRealmRole(ctx, subjectID, string(user.RoleUser)); err != nil {
		o.log.Warn("default role assignment failed",
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
	}

	rec := &user.Record{
		Username:      reg.Username,
		Email:         reg.Email,
		SubjectID:     subjectID,
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		PhoneNumber:   reg.PhoneNumber,
		Country:       reg.Country,
		City:          reg.City,
		State:         reg.State,
		StreetAddress: reg.StreetAddress,
		PostalCode:    reg.PostalCode,
		Role:          user.RoleUser,
		Active:        true,
		Verified:      true,
		PasswordHash:  digest,
	}

	saved, err := o.store.Save(ctx, rec)
	if err != nil {
		// The IdP account exists but the local record does not. Try to
		// undo the IdP side so the two systems do not diverge; if that
		// also fails the orphan needs manual reconciliation.
		o.log.Error("local persistence failed after idp creation",
			zap.String("username", reg.Username),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		if derr := o.gateway.DeleteAccount(ctx, subjectID); derr != nil && !errors.Is(derr, idp.ErrNotFound) {
			o.log.Error("compensating idp delete failed, orphaned idp account",
				zap.String("subject_id", subjectID),
				zap.Error(derr),
			)
		}
		return nil, fmt.Errorf("%w: local save: %v", apperr.ErrInfrastructure, err)
	}

	o.events.Enqueue(event.NewEnvelope(event.TypeUserRegistered, saved.ID))

	o.log.Info("user registered",
		zap.Int64("user_id", saved.ID),
		zap.String("username", saved.Username),
		zap.String("subject_id", subjectID),
	)
	return saved, nil
}

// Delete soft-deletes the account named by username. Externally-managed
// records are removed at the IdP first and never ask for a secret;
// locally-managed records require the presented secret to match the
// stored digest. The local record is only marked deleted after its
// credential or IdP ownership has been validated.
func (o *Orchestrator) Delete(ctx context.Context, username, secret string) error {
	rec, err := o.store.FindByUsername(ctx, username, false)
	if errors.Is(err, user.ErrNoRecord) {
		return fmt.Errorf("%w: user %q", apperr.ErrNotFound, username)
	}
	if err != nil {
		return fmt.Errorf("%w: lookup: %v", apperr.ErrInfrastructure, err)
	}

	if rec.ExternallyManaged() {
		err := o.gateway.DeleteAccount(ctx, rec.SubjectID)
		switch {
		case errors.Is(err, idp.ErrNotFound):
			// Already gone upstream; proceed with the local soft delete.
			o.log.Warn("idp account already absent",
				zap.String("subject_id", rec.SubjectID),
			)
		case err != nil:
			return fmt.Errorf("%w: idp delete: %v", apperr.ErrInfrastructure, err)
		}
	} else {
		if secret == "" {
			return fmt.Errorf("%w: password required", apperr.ErrValidationFailed)
		}
		if err := credentials.VerifyPassword(rec.PasswordHash, secret); err != nil {
			o.log.Warn("password mismatch on deletion", zap.String("username", username))
			return fmt.Errorf("%w: password mismatch", apperr.ErrAuthenticationFailed)
		}
	}

	rec.MarkDeleted()
	if _, err := o.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("%w: soft delete: %v", apperr.ErrInfrastructure, err)
	}

	o.events.Enqueue(event.NewEnvelope(event.TypeUserDeleted, rec.ID))

	o.log.Info("user deleted",
		zap.Int64("user_id", rec.ID),
		zap.String("username", username),
		zap.Bool("externally_managed", rec.ExternallyManaged()),
	)
	return nil
}

// UsernameTaken reports whether the username is claimed locally (including
// by soft-deleted records) or live at the IdP. An IdP failure degrades the
// answer to the local result.
func (o *Orchestrator) UsernameTaken(ctx context.Context, username string) (bool, error) {
	local, err := o.store.ExistsByUsername(ctx, username, true)
	if err != nil {
		return false, fmt.Errorf("%w: username check: %v", apperr.ErrInfrastructure, err)
	}
	if local {
		return true, nil
	}

	remote, err := o.gateway.UsernameExists(ctx, username)
	if err != nil {
		o.log.Warn("idp username check failed, using local answer",
			zap.String("username", username),
			zap.Error(err),
		)
		return local, nil
	}
	return remote, nil
}

// EmailTaken reports whether the email is claimed locally, including by
// soft-deleted records. The IdP is not the email namespace authority.
func (o *Orchestrator) EmailTaken(ctx context.Context, email string) (bool, error) {
	taken, err := o.store.ExistsByEmail(ctx, email, true)
	if err != nil {
		return false, fmt.Errorf("%w: email check: %v", apperr.ErrInfrastructure, err)
	}
	return taken, nil
}

// GetByID returns the non-deleted record with the given internal id.
func (o *Orchestrator) GetByID(ctx context.Context, id int64) (*user.Record, error) {
	rec, err := o.store.FindByID(ctx, id)
	if errors.Is(err, user.ErrNoRecord) {
		return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup: %v", apperr.ErrInfrastructure, err)
	}
	return rec, nil
}

// GetByUsername returns the non-deleted record with the given username.
func (o *Orchestrator) GetByUsername(ctx context.Context, username string) (*user.Record, error) {
	rec, err := o.store.FindByUsername(ctx, username, false)
	if errors.Is(err, user.ErrNoRecord) {
		return nil, fmt.Errorf("%w: user %q", apperr.ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup: %v", apperr.ErrInfrastructure, err)
	}
	return rec, nil
}

// GetByIDs returns the non-deleted records matching ids; missing ids are
// silently skipped so peer services can resolve what exists.
func (o *Orchestrator) GetByIDs(ctx context.Context, ids []int64) ([]user.Record, error) {
	recs, err := o.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: batch lookup: %v", apperr.ErrInfrastructure, err)
	}
	return recs, nil
}

// ExistsByID reports whether a non-deleted record with the given id exists.
func (o *Orchestrator) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, err := o.store.FindByID(ctx, id)
	if errors.Is(err, user.ErrNoRecord) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %v", apperr.ErrInfrastructure, err)
	}
	return true, nil
}

// ExternallyManaged reports whether the named account's credentials are
// owned by the IdP.
func (o *Orchestrator) ExternallyManaged(ctx context.Context, username string) (bool, error) {
	rec, err := o.store.FindByUsername(ctx, username, false)
	if errors.Is(err, user.ErrNoRecord) {
		return false, fmt.Errorf("%w: user %q", apperr.ErrNotFound, username)
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %v", apperr.ErrInfrastructure, err)
	}
	return rec.ExternallyManaged(), nil
}
