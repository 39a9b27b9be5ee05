package shop

import (
	"context"
	"testing"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAccounts(t *testing.T, opts ...Option) (*Accounts, *identity.SessionManager) {
	t.Helper()
	verifier := identity.NewStaticVerifier([]config.StaticIdentity{
		{Token: "token-ana", UID: "uid-ana", Phone: "+15550000001"},
		{Token: "token-ben", UID: "uid-ben", Phone: "+15550000002"},
		{Token: "token-nophone", UID: "uid-x"},
	})
	sessions := identity.NewSessionManager(&config.AuthConfig{
		JWTSecret:  "test-secret-test-secret-test-secret",
		Issuer:     "foodshop-test",
		SessionTTL: time.Hour,
	})
	return NewAccounts(newTestStore(t), verifier, sessions, zap.NewNop(), opts...), sessions
}

func TestAccounts_SyncUser(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts(t)

	first, err := a.SyncUser(ctx, "+15550000001", "Ana")
	require.NoError(t, err)
	renamed, err := a.SyncUser(ctx, " +15550000001 ", "Ana Maria")
	require.NoError(t, err)
	assert.Equal(t, first.ID, renamed.ID)
	assert.Equal(t, "Ana Maria", renamed.FullName)

	_, err = a.SyncUser(ctx, "5550000001", "A")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "mobile")
	assert.Contains(t, verr.Fields, "full_name")
}

func TestAccounts_CheckUserExistsUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newTestRedis(t)
	a, _ := newTestAccounts(t, WithUserCache(cache))

	_, ok, err := a.CheckUserExists(ctx, "+15550000009")
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := a.SyncUser(ctx, "+15550000009", "Cara")
	require.NoError(t, err)

	cached, ok, err := cache.GetCachedUser(ctx, "+15550000009")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, cached.ID)

	found, ok, err := a.CheckUserExists(ctx, "+15550000009")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Cara", found.FullName)
}

func TestAccounts_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	a, sessions := newTestAccounts(t)

	_, err := a.Login(ctx, "token-ana")
	assert.ErrorIs(t, err, ErrUserNotRegistered)

	registered, err := a.Register(ctx, "token-ana", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "+15550000001", registered.User.Mobile)

	session, err := a.Login(ctx, "token-ana")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	claims, err := sessions.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)
	assert.Equal(t, "+15550000001", claims.Phone)
}

func TestAccounts_IdentityErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts(t)

	_, err := a.Login(ctx, "forged")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = a.Register(ctx, "token-nophone", "Xavier")
	assert.ErrorIs(t, err, identity.ErrNoPhone)

	_, err = a.Register(ctx, "token-ben", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "full_name")
}
