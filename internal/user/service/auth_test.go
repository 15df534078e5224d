package service

import (
	"context"
	"testing"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/pkg/cryptox"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccess(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	user := createUser(t, st, "alice@example.com")

	pair, err := svc.Login(ctx, "alice@example.com", testPassword, "", "client-1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(svc.Codec.TTL().Seconds()), pair.ExpiresIn)

	// Access token carries the user id as subject
	claims, err := svc.Codec.Parse(pair.AccessToken, time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, user.Roles, claims.Roles)

	// Refresh token was persisted by fingerprint
	rec, err := st.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, user.ID, rec.UserID)
	require.False(t, rec.Revoked)

	// Login was audited
	entries, err := st.AuditLogs().ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.AuditLogin, entries[0].Action)
}

func TestLoginWrongPassword(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)

	createUser(t, st, "bob@example.com")

	_, err := svc.Login(context.Background(), "bob@example.com", "not-the-password", "", "client-1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)

	_, err := svc.Login(context.Background(), "ghost@example.com", testPassword, "", "client-1")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginInactiveOrBannedDenied(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	inactive := createUser(t, st, "pending@example.com")
	require.NoError(t, st.Users().SetActive(ctx, inactive.ID, false, time.Now()))

	_, err := svc.Login(ctx, "pending@example.com", testPassword, "", "client-a")
	require.ErrorIs(t, err, ErrAccessDenied)

	banned := createUser(t, st, "banned@example.com")
	require.NoError(t, st.Users().SetBanned(ctx, banned.ID, true, time.Now()))

	_, err = svc.Login(ctx, "banned@example.com", testPassword, "", "client-b")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestLoginThrottling(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	// Every attempt, successful or not, charges the guard. The attempt
	// bucket holds 5, the block bucket 10.
	for range 5 {
		_, err := svc.Login(ctx, "ghost@example.com", "x", "", "attacker")
		require.ErrorIs(t, err, ErrUserNotFound)
	}

	for range 5 {
		_, err := svc.Login(ctx, "ghost@example.com", "x", "", "attacker")
		require.ErrorIs(t, err, ErrTooManyAttempts)
	}

	_, err := svc.Login(ctx, "ghost@example.com", "x", "", "attacker")
	require.ErrorIs(t, err, ErrSuspiciousActivity)

	// A different client key is unaffected
	_, err = svc.Login(ctx, "ghost@example.com", "x", "", "someone-else")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginTwoFAGate(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	now := time.Now()
	svc.Now = func() time.Time { return now }

	user := createUser(t, st, "mfa@example.com")

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)
	require.NoError(t, st.TwoFactorSecrets().Upsert(ctx, domain.TwoFactorSecret{
		ID: idx.New().String(), UserID: user.ID, Secret: secret,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, st.TwoFactorSecrets().SetEnabled(ctx, user.ID, true, now))

	_, err = svc.Login(ctx, "mfa@example.com", testPassword, "", "c1")
	require.ErrorIs(t, err, ErrTwoFACodeRequired)

	_, err = svc.Login(ctx, "mfa@example.com", testPassword, "12a456", "c1")
	require.ErrorIs(t, err, ErrTwoFAInvalidFormat)

	_, err = svc.Login(ctx, "mfa@example.com", testPassword, "000000", "c1")
	require.ErrorIs(t, err, ErrTwoFAInvalidCode)

	code, err := totpx.CodeAt(secret, now)
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "mfa@example.com", testPassword, code, "c1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}

func TestLoginDisabledTwoFANotDemanded(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	user := createUser(t, st, "setup-only@example.com")

	// Secret stored but never enabled: login must not ask for a code.
	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, st.TwoFactorSecrets().Upsert(ctx, domain.TwoFactorSecret{
		ID: idx.New().String(), UserID: user.ID, Secret: secret,
		CreatedAt: now, UpdatedAt: now,
	}))

	_, err = svc.Login(ctx, "setup-only@example.com", testPassword, "", "c1")
	require.NoError(t, err)
}

func TestRefreshReturnsSameRefreshToken(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	createUser(t, st, "refresh@example.com")
	pair, err := svc.Login(ctx, "refresh@example.com", testPassword, "", "c1")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken, "refresh token must not rotate")
}

func TestRefreshUnknownToken(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)

	_, err := svc.Refresh(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRefreshRevokedAndExpired(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	user := createUser(t, st, "stale@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	revoked := "revoked-token"
	require.NoError(t, st.RefreshTokens().Create(ctx, domain.RefreshToken{
		ID: idx.New().String(), UserID: user.ID,
		TokenHash: cryptox.FingerprintToken(revoked),
		ExpiresAt: now.Add(time.Hour), Revoked: true,
		CreatedAt: now, UpdatedAt: now,
	}))
	_, err := svc.Refresh(ctx, revoked)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)

	expired := "expired-token"
	require.NoError(t, st.RefreshTokens().Create(ctx, domain.RefreshToken{
		ID: idx.New().String(), UserID: user.ID,
		TokenHash: cryptox.FingerprintToken(expired),
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
	}))
	_, err = svc.Refresh(ctx, expired)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)
}

func TestRefreshBannedUserDenied(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	user := createUser(t, st, "refresh-ban@example.com")
	pair, err := svc.Login(ctx, "refresh-ban@example.com", testPassword, "", "c1")
	require.NoError(t, err)

	require.NoError(t, st.Users().SetBanned(ctx, user.ID, true, time.Now()))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestLogoutIdempotent(t *testing.T) {
	st := newTestStore(t)
	svc := newTestAuth(t, st)
	ctx := context.Background()

	createUser(t, st, "bye@example.com")
	pair, err := svc.Login(ctx, "bye@example.com", testPassword, "", "c1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	// Token is now revoked
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)

	// Logging out again, or with a token that never existed, is silent
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "never-issued"))
}
