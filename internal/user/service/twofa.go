package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/totpx"
)

// TwoFAService manages TOTP enrolment. Setup stores a secret without
// enabling it; the user must prove possession of the secret via Enable
// before logins start demanding codes.
type TwoFAService struct {
	Store  store.Store
	Audit  *AuditService
	Issuer string // issuer label in the provisioning URI

	Now func() time.Time
}

// Setup generates a fresh TOTP secret for the user. Re-running setup
// replaces any previous secret and disables 2FA until re-verified.
func (s *TwoFAService) Setup(ctx context.Context, userID string) (domain.TwoFASetup, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TwoFASetup{}, ErrUserNotFound
		}
		return domain.TwoFASetup{}, err
	}

	secret, err := totpx.GenerateSecret()
	if err != nil {
		return domain.TwoFASetup{}, fmt.Errorf("generate totp secret: %w", err)
	}

	now := s.now()
	err = s.Store.TwoFactorSecrets().Upsert(ctx, domain.TwoFactorSecret{
		ID:        idx.New().String(),
		UserID:    userID,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.TwoFASetup{}, fmt.Errorf("store totp secret: %w", err)
	}

	return domain.TwoFASetup{
		Secret:          secret,
		ProvisioningURI: totpx.ProvisioningURI(s.Issuer, user.Email, secret),
	}, nil
}

// Verify checks a code against the user's stored secret without changing
// any state.
func (s *TwoFAService) Verify(ctx context.Context, userID, rawCode string) error {
	rec, err := s.Store.TwoFactorSecrets().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTwoFANotSetup
		}
		return err
	}

	code, err := totpx.ParseCode(rawCode)
	if err != nil {
		return ErrTwoFAInvalidFormat
	}
	if !totpx.VerifyCode(rec.Secret, code, s.now()) {
		return ErrTwoFAInvalidCode
	}
	return nil
}

// Enable turns 2FA on once the user proves possession of the secret.
func (s *TwoFAService) Enable(ctx context.Context, userID, rawCode string) error {
	if err := s.Verify(ctx, userID, rawCode); err != nil {
		return err
	}

	if err := s.Store.TwoFactorSecrets().SetEnabled(ctx, userID, true, s.now()); err != nil {
		return err
	}

	s.Audit.Record(ctx, userID, domain.AuditTwoFAEnabled, nil)
	return nil
}

// Disable turns 2FA off. A valid current code is required so a stolen
// session alone cannot weaken the account.
func (s *TwoFAService) Disable(ctx context.Context, userID, rawCode string) error {
	if err := s.Verify(ctx, userID, rawCode); err != nil {
		return err
	}

	if err := s.Store.TwoFactorSecrets().SetEnabled(ctx, userID, false, s.now()); err != nil {
		return err
	}

	s.Audit.Record(ctx, userID, domain.AuditTwoFADisabled, nil)
	return nil
}

func (s *TwoFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
