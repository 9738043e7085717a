package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/auth"
)

func newService(devAuth bool) (*auth.Service, *auth.InMemoryRefreshTokenRepository) {
	repo := auth.NewInMemoryRefreshTokenRepository()
	return auth.NewService(auth.ServiceConfig{
		JWTService:     newJWT("test-secret-key-for-testing-only", testIssuer, testAudience),
		RefreshRepo:    repo,
		DevAuthEnabled: devAuth,
	}), repo
}

func TestDevAuthenticate_Disabled(t *testing.T) {
	svc, _ := newService(false)

	_, err := svc.DevAuthenticate(context.Background(), &auth.DevAuthenticateRequest{})
	assert.ErrorIs(t, err, auth.ErrDevAuthDisabled)
	assert.False(t, svc.DevAuthEnabled())
}

func TestDevAuthenticate_MintsUser(t *testing.T) {
	svc, _ := newService(true)

	resp, err := svc.DevAuthenticate(context.Background(), &auth.DevAuthenticateRequest{})
	require.NoError(t, err)
	assert.Regexp(t, `^usr_`, resp.UserID)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.InDelta(t, auth.AccessTokenExpiry.Seconds(), float64(resp.ExpiresIn), 5)

	userID, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, userID)
}

func TestDevAuthenticate_ExistingUser(t *testing.T) {
	svc, _ := newService(true)

	resp, err := svc.DevAuthenticate(context.Background(), &auth.DevAuthenticateRequest{UserID: "usr_alice"})
	require.NoError(t, err)
	assert.Equal(t, "usr_alice", resp.UserID)

	_, err = svc.DevAuthenticate(context.Background(), &auth.DevAuthenticateRequest{UserID: "alice"})
	assert.Error(t, err)
}

func TestRefreshAccessToken_Rotates(t *testing.T) {
	svc, _ := newService(true)
	ctx := context.Background()

	first, err := svc.DevAuthenticate(ctx, &auth.DevAuthenticateRequest{UserID: "usr_bob"})
	require.NoError(t, err)

	second, err := svc.RefreshAccessToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "usr_bob", second.UserID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old token was revoked by rotation.
	_, err = svc.RefreshAccessToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshAccessToken_Unknown(t *testing.T) {
	svc, _ := newService(true)

	_, err := svc.RefreshAccessToken(context.Background(), "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshAccessToken_Expired(t *testing.T) {
	svc, repo := newService(true)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{
		ID:        "rt_1",
		Token:     "stale",
		UserID:    "usr_carol",
		CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := svc.RefreshAccessToken(ctx, "stale")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenExpired)
}

func TestRevokeAllTokens(t *testing.T) {
	svc, _ := newService(true)
	ctx := context.Background()

	a, err := svc.DevAuthenticate(ctx, &auth.DevAuthenticateRequest{UserID: "usr_dan"})
	require.NoError(t, err)
	b, err := svc.DevAuthenticate(ctx, &auth.DevAuthenticateRequest{UserID: "usr_dan"})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllTokens(ctx, "usr_dan"))

	for _, token := range []string{a.RefreshToken, b.RefreshToken} {
		_, err := svc.RefreshAccessToken(ctx, token)
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	}
}
