package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/cryptox"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/jwtx"
	"github.com/elysion/userd/pkg/ratex"
	"github.com/elysion/userd/pkg/slogx"
	"github.com/elysion/userd/pkg/totpx"
)

var (
	ErrUserNotFound          = errors.New("user_not_found")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrAccessDenied          = errors.New("access_denied")
	ErrTwoFACodeRequired     = errors.New("twofa_code_required")
	ErrTwoFAInvalidFormat    = errors.New("twofa_code_not_numeric")
	ErrTwoFAInvalidCode      = errors.New("twofa_code_invalid")
	ErrTwoFANotSetup         = errors.New("twofa_not_setup")
	ErrTokenNotFound         = errors.New("refresh_token_not_found")
	ErrTokenExpiredOrRevoked = errors.New("refresh_token_expired_or_revoked")
	ErrTooManyAttempts       = errors.New("too_many_attempts")
	ErrSuspiciousActivity    = errors.New("suspicious_activity")
)

// AuthService owns the session lifecycle: login, refresh, logout.
type AuthService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Guard      *ratex.LoginGuard
	Audit      *AuditService
	RefreshTTL time.Duration

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Login authenticates a user and issues a token pair. clientKey identifies
// the caller for throttling (typically the remote IP) and is consulted
// before any credential work happens.
func (s *AuthService) Login(ctx context.Context, email, password, twoFACode, clientKey string) (*domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	switch s.Guard.Admit(clientKey) {
	case ratex.BlockedSuspicious:
		l.Warn("login blocked, suspicious activity", slog.String("client_key", clientKey))
		return nil, ErrSuspiciousActivity
	case ratex.BlockedAttempts:
		l.Info("login blocked, attempt limit", slog.String("client_key", clientKey))
		return nil, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			l.Info("login password mismatch", slog.String("user_id", user.ID))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CanLogin() {
		return nil, ErrAccessDenied
	}

	if err := s.checkTwoFA(ctx, user.ID, twoFACode, now); err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, user, now)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, user.ID, domain.AuditLogin, map[string]any{"client_key": clientKey})
	return pair, nil
}

// checkTwoFA gates the login on a valid TOTP code when the user has 2FA
// enabled. Users without an enabled enrolment pass through untouched.
func (s *AuthService) checkTwoFA(ctx context.Context, userID, twoFACode string, now time.Time) error {
	rec, err := s.Store.TwoFactorSecrets().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !rec.Enabled {
		return nil
	}

	if twoFACode == "" {
		return ErrTwoFACodeRequired
	}
	code, err := totpx.ParseCode(twoFACode)
	if err != nil {
		return ErrTwoFAInvalidFormat
	}
	if !totpx.VerifyCode(rec.Secret, code, now) {
		return ErrTwoFAInvalidCode
	}
	return nil
}

// issueTokens signs a fresh access token and mints an opaque refresh token.
// Persisting the refresh record is best-effort once the pair exists: a
// failure is logged, not unwound.
func (s *AuthService) issueTokens(ctx context.Context, user domain.User, now time.Time) (*domain.TokenPair, error) {
	access, err := s.Codec.Sign(user.ID, user.Roles, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().Create(ctx, record); err != nil {
		slogx.FromContext(ctx).Error("failed to persist refresh token",
			slog.String("user_id", user.ID),
			slog.Any("err", err),
		)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.TTL().Seconds()),
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself is returned unchanged; it stays valid until expiry
// or revocation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := s.now()

	record, err := s.Store.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if record.Revoked || now.After(record.ExpiresAt) {
		return nil, ErrTokenExpiredOrRevoked
	}

	user, err := s.Store.Users().GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, ErrAccessDenied
	}

	access, err := s.Codec.Sign(user.ID, user.Roles, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.Audit.Record(ctx, user.ID, domain.AuditRefreshToken, nil)

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.TTL().Seconds()),
	}, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored so the call
// is idempotent and reveals nothing about token validity.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	now := s.now()
	hash := cryptox.FingerprintToken(refreshToken)

	record, err := s.Store.RefreshTokens().GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.Store.RefreshTokens().Revoke(ctx, hash, now); err != nil {
		return err
	}

	s.Audit.Record(ctx, record.UserID, domain.AuditLogout, nil)
	return nil
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
