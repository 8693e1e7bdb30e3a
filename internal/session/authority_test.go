package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgcms/internal/apperr"
	"lgcms/internal/models"
	"lgcms/internal/revocation"
)

const secret = "authority-test-secret"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuthority(t *testing.T) (*Authority, *fakeClock, *revocation.MemoryStore) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := revocation.NewMemoryStore().WithClock(clock.Now)
	auth := NewAuthority(secret, time.Hour, store, nil, zerolog.Nop()).WithClock(clock.Now)
	return auth, clock, store
}

var alice = models.Identity{ID: "u-alice", Role: models.RoleStaff, Name: "alice"}

func TestIssueThenVerify(t *testing.T) {
	auth, clock, _ := newAuthority(t)

	token, err := auth.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), token.ExpiresAt)

	res, err := auth.Verify(context.Background(), token.Raw)
	require.NoError(t, err)
	assert.Equal(t, ReasonValid, res.Reason)
	assert.Equal(t, alice, res.Identity)
	assert.Equal(t, token.ID, res.TokenID)
	assert.NoError(t, res.Err())
}

func TestVerifyExpiredToken(t *testing.T) {
	auth, clock, _ := newAuthority(t)
	token, err := auth.Issue(alice)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)

	res, err := auth.Verify(context.Background(), token.Raw)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)
	assert.ErrorIs(t, res.Err(), apperr.ErrExpiredToken)
}

func TestVerifyTamperedToken(t *testing.T) {
	auth, _, _ := newAuthority(t)
	token, err := auth.Issue(alice)
	require.NoError(t, err)

	tampered := token.Raw[:len(token.Raw)-2] + "xx"
	res, err := auth.Verify(context.Background(), tampered)
	require.NoError(t, err)
	assert.Equal(t, ReasonMalformed, res.Reason)
	assert.ErrorIs(t, res.Err(), apperr.ErrMalformedToken)
}

func TestRevokeRejectsUntilExpiry(t *testing.T) {
	ctx := context.Background()
	auth, clock, store := newAuthority(t)
	token, err := auth.Issue(alice)
	require.NoError(t, err)

	require.NoError(t, auth.Revoke(ctx, token.Raw))
	require.NoError(t, auth.Revoke(ctx, token.Raw))
	assert.Equal(t, 1, store.Len())

	clock.Advance(30 * time.Minute)
	res, err := auth.Verify(ctx, token.Raw)
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, res.Reason)
	assert.ErrorIs(t, res.Err(), apperr.ErrRevokedToken)

	clock.Advance(31 * time.Minute)
	res, err = auth.Verify(ctx, token.Raw)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)

	removed, err := auth.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	auth, clock, store := newAuthority(t)
	token, err := auth.Issue(alice)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	require.NoError(t, auth.Revoke(ctx, token.Raw))
	assert.Equal(t, 0, store.Len())
}

func TestRevokeMalformedToken(t *testing.T) {
	auth, _, _ := newAuthority(t)
	err := auth.Revoke(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperr.ErrMalformedToken)
}

type failingStore struct{ revocation.Store }

func (failingStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("i/o timeout")
}

func TestVerifyStoreFailureIsNotValid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	auth := NewAuthority(secret, time.Hour, failingStore{}, nil, zerolog.Nop()).WithClock(clock.Now)
	token, err := auth.Issue(alice)
	require.NoError(t, err)

	res, err := auth.Verify(context.Background(), token.Raw)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.False(t, res.Valid())
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	auth, _, _ := newAuthority(t)
	_, err := auth.Issue(models.Identity{ID: "x", Role: "superuser"})
	assert.Error(t, err)
}
