package lifecycle

import (
	"context"
	"errors"
	"testing"

	"identity-service/internal/apperr"
	"identity-service/internal/auth/credentials"
	"identity-service/internal/event"
	"identity-service/internal/idp"
	"identity-service/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	subjectID     string
	createErr     error
	deleteErr     error
	existsAnswer  bool
	existsErr     error
	assignRoleErr error

	created []idp.NewAccount
	deleted []string
}

func (g *fakeGateway) CreateAccount(_ context.Context, acc idp.NewAccount) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.created = append(g.created, acc)
	return g.subjectID, nil
}

func (g *fakeGateway) DeleteAccount(_ context.Context, subjectID string) error {
	g.deleted = append(g.deleted, subjectID)
	return g.deleteErr
}

func (g *fakeGateway) UsernameExists(_ context.Context, _ string) (bool, error) {
	return g.existsAnswer, g.existsErr
}

func (g *fakeGateway) AssignRealmRole(_ context.Context, _, _ string) error {
	return g.assignRoleErr
}

type captureQueue struct {
	events []event.Envelope
}

func (q *captureQueue) Enqueue(e event.Envelope) {
	q.events = append(q.events, e)
}

func newTestOrchestrator(gw *fakeGateway) (*Orchestrator, *user.MemoryStore, *captureQueue) {
	store := user.NewMemoryStore()
	queue := &captureQueue{}
	return NewOrchestrator(store, gw, queue, zap.NewNop()), store, queue
}

func validRegistration() Registration {
	return Registration{
		Username:  "bob",
		Email:     "bob@x.com",
		FirstName: "Bob",
		LastName:  "Stone",
	}
}

func TestRegisterCreatesIdPFirstThenLocal(t *testing.T) {
	gw := &fakeGateway{subjectID: "kc-42"}
	orch, store, queue := newTestOrchestrator(gw)
	ctx := context.Background()

	rec, err := orch.Register(ctx, validRegistration(), "Str0ngpass")
	require.NoError(t, err)

	require.Len(t, gw.created, 1)
	assert.Equal(t, "bob", gw.created[0].Username)

	assert.Equal(t, "kc-42", rec.SubjectID)
	assert.Equal(t, user.RoleUser, rec.Role)
	assert.True(t, rec.Active)
	assert.True(t, rec.Verified)

	// The local digest is a real hash, not the sentinel: it is kept as a
	// fallback/audit artifact.
	assert.NotEqual(t, user.ExternallyManagedHash, rec.PasswordHash)
	assert.NoError(t, credentials.VerifyPassword(rec.PasswordHash, "Str0ngpass"))

	stored, err := store.FindByUsername(ctx, "bob", false)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)

	require.Len(t, queue.events, 1)
	assert.Equal(t, event.TypeUserRegistered, queue.events[0].Type)
	assert.Equal(t, rec.ID, queue.events[0].UserID)
}

func TestRegisterRejectsWeakSecret(t *testing.T) {
	gw := &fakeGateway{subjectID: "kc-42"}
	orch, _, queue := newTestOrchestrator(gw)

	_, err := orch.Register(context.Background(), validRegistration(), "short")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Empty(t, gw.created, "no IdP write before validation passes")
	assert.Empty(t, queue.events)
}

func TestRegisterRejectsUsernameTakenAtIdP(t *testing.T) {
	gw := &fakeGateway{existsAnswer: true}
	orch, _, _ := newTestOrchestrator(gw)

	_, err := orch.Register(context.Background(), validRegistration(), "Str0ngpass")
	assert.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Empty(t, gw.created)
}

func TestRegisterRejectsUsernameTakenLocally(t *testing.T) {
	gw := &fakeGateway{subjectID: "kc-42"}
	orch, store, _ := newTestOrchestrator(gw)
	ctx := context.Background()

	// A soft-deleted record still claims the username.
	rec := &user.Record{Username: "bob", Email: "old@x.com", PasswordHash: "x"}
	_, err := store.Save(ctx, rec)
	require.NoError(t, err)
	rec.MarkDeleted()
	_, err = store.Save(ctx, rec)
	require.NoError(t, err)

	_, err = orch.Register(ctx, validRegistration(), "Str0ngpass")
	assert.ErrorIs(t, err, apperr.ErrDuplicateIdentity)
	assert.Empty(t, gw.created)
}

func TestRegisterIdPCheckFailureIsFatal(t *testing.T) {
	gw := &fakeGateway{existsErr: errors.New("idp down")}
	orch, _, _ := newTestOrchestrator(gw)

	_, err := orch.Register(context.Background(), validRegistration(), "Str0ngpass")
	assert.ErrorIs(t, err, apperr.ErrInfrastructure)
}

func TestRegisterLocalFailureCompensatesAndEmitsNothing(t *testing.T) {
	gw := &fakeGateway{subjectID: "kc-42"}
	orch, store, queue := newTestOrchestrator(gw)
	store.SaveErr = errors.New("disk on fire")

	_, err := orch.Register(context.Background(), validRegistration(), "Str0ngpass")
	assert.ErrorIs(t, err, apperr.ErrInfrastructure)

	assert.Empty(t, queue.events, "failed registrations never emit events")
	assert.Equal(t, []string{"kc-42"}, gw.deleted, "orphaned IdP account gets a compensating delete")
}

func seedLocalAccount(t *testing.T, store *user.MemoryStore, secret string) *user.Record {
	t.Helper()

	digest, err := credentials.HashPassword(secret)
	require.NoError(t, err)

	rec, err := store.Save(context.Background(), &user.Record{
		Username:     "carol",
		Email:        "carol@x.com",
		Role:         user.RoleUser,
		Active:       true,
		PasswordHash: digest,
	})
	require.NoError(t, err)
	return rec
}

func seedExternalAccount(t *testing.T, store *user.MemoryStore) *user.Record {
	t.Helper()

	rec, err := store.Save(context.Background(), &user.Record{
		Username:     "dave",
		Email:        "dave@x.com",
		SubjectID:    "kc-7",
		Role:         user.RoleUser,
		Active:       true,
		Verified:     true,
		PasswordHash: user.ExternallyManagedHash,
	})
	require.NoError(t, err)
	return rec
}

func TestDeleteLocalAccountWrongSecret(t *testing.T) {
	gw := &fakeGateway{}
	orch, store, queue := newTestOrchestrator(gw)
	seedLocalAccount(t, store, "Str0ngpass")

	err := orch.Delete(context.Background(), "carol", "WrongPass1")
	assert.ErrorIs(t, err, apperr.ErrAuthenticationFailed)

	_, ferr := store.FindByUsername(context.Background(), "carol", false)
	assert.NoError(t, ferr, "record must stay non-deleted")
	assert.Empty(t, queue.events)
	assert.Empty(t, gw.deleted, "local accounts never touch the IdP")
}

func TestDeleteLocalAccountMissingSecret(t *testing.T) {
	orch, store, _ := newTestOrchestrator(&fakeGateway{})
	seedLocalAccount(t, store, "Str0ngpass")

	err := orch.Delete(context.Background(), "carol", "")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestDeleteLocalAccountCorrectSecret(t *testing.T) {
	orch, store, queue := newTestOrchestrator(&fakeGateway{})
	rec := seedLocalAccount(t, store, "Str0ngpass")
	ctx := context.Background()

	err := orch.Delete(ctx, "carol", "Str0ngpass")
	require.NoError(t, err)

	_, ferr := store.FindByUsername(ctx, "carol", false)
	assert.ErrorIs(t, ferr, user.ErrNoRecord)

	// Still present in the all-time view.
	all, ferr := store.FindByUsername(ctx, "carol", true)
	require.NoError(t, ferr)
	assert.True(t, all.Deleted)

	require.Len(t, queue.events, 1)
	assert.Equal(t, event.TypeUserDeleted, queue.events[0].Type)
	assert.Equal(t, rec.ID, queue.events[0].UserID)
}

func TestDeleteExternalAccountNeverChecksSecret(t *testing.T) {
	gw := &fakeGateway{}
	orch, store, queue := newTestOrchestrator(gw)
	seedExternalAccount(t, store)
	ctx := context.Background()

	err := orch.Delete(ctx, "dave", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"kc-7"}, gw.deleted)
	_, ferr := store.FindByUsername(ctx, "dave", false)
	assert.ErrorIs(t, ferr, user.ErrNoRecord)
	require.Len(t, queue.events, 1)
}

func TestDeleteExternalAccountIdPAlreadyGone(t *testing.T) {
	gw := &fakeGateway{deleteErr: idp.ErrNotFound}
	orch, store, _ := newTestOrchestrator(gw)
	seedExternalAccount(t, store)
	ctx := context.Background()

	err := orch.Delete(ctx, "dave", "")
	require.NoError(t, err, "already-deleted at the IdP is non-fatal")

	_, ferr := store.FindByUsername(ctx, "dave", false)
	assert.ErrorIs(t, ferr, user.ErrNoRecord)
}

func TestDeleteExternalAccountIdPFailureAborts(t *testing.T) {
	gw := &fakeGateway{deleteErr: errors.New("idp down")}
	orch, store, queue := newTestOrchestrator(gw)
	seedExternalAccount(t, store)
	ctx := context.Background()

	err := orch.Delete(ctx, "dave", "")
	assert.ErrorIs(t, err, apperr.ErrInfrastructure)

	_, ferr := store.FindByUsername(ctx, "dave", false)
	assert.NoError(t, ferr, "local soft delete only happens after the IdP side is confirmed gone")
	assert.Empty(t, queue.events)
}

func TestDeleteUnknownUser(t *testing.T) {
	orch, _, _ := newTestOrchestrator(&fakeGateway{})

	err := orch.Delete(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsernameTakenDegradesOnIdPFailure(t *testing.T) {
	gw := &fakeGateway{existsErr: errors.New("idp down")}
	orch, _, _ := newTestOrchestrator(gw)

	taken, err := orch.UsernameTaken(context.Background(), "bob")
	require.NoError(t, err, "IdP failure degrades to the local answer")
	assert.False(t, taken)
}

func TestUsernameTakenCombinesLocalAndIdP(t *testing.T) {
	gw := &fakeGateway{existsAnswer: true}
	orch, _, _ := newTestOrchestrator(gw)

	taken, err := orch.UsernameTaken(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestEmailTakenUsesLocalStoreOnly(t *testing.T) {
	gw := &fakeGateway{existsErr: errors.New("must not be called")}
	orch, store, _ := newTestOrchestrator(gw)
	ctx := context.Background()

	rec := &user.Record{Username: "eve", Email: "eve@x.com", PasswordHash: "x"}
	_, err := store.Save(ctx, rec)
	require.NoError(t, err)
	rec.MarkDeleted()
	_, err = store.Save(ctx, rec)
	require.NoError(t, err)

	taken, err := orch.EmailTaken(ctx, "eve@x.com")
	require.NoError(t, err)
	assert.True(t, taken, "soft-deleted records keep their email claimed")
}
