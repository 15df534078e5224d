package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/cryptox"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/slogx"
	"github.com/google/uuid"
)

const (
	// VerificationTokenTTL bounds how long a confirmation or reset link
	// stays usable.
	VerificationTokenTTL = time.Hour

	minPasswordLength = 8
)

var (
	ErrEmailTaken      = errors.New("email_taken")
	ErrWeakPassword    = errors.New("password_too_short")
	ErrTokenExpired    = errors.New("token_expired")
	ErrUnknownToken    = errors.New("unknown_token")
	ErrAlreadyActive   = errors.New("account_already_active")
	ErrMissingEmail    = errors.New("email_required")
	ErrMissingPassword = errors.New("password_required")
)

// RegistrationService covers account creation with double-opt-in email
// confirmation, plus the password reset flow.
type RegistrationService struct {
	Store  store.Store
	Mailer Mailer
	Audit  *AuditService

	Now func() time.Time
}

// Register creates an inactive account and mails a confirmation token.
// Accounts stay unable to log in until ConfirmEmail runs.
func (s *RegistrationService) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, ErrMissingEmail
	}
	if password == "" {
		return domain.User{}, ErrMissingPassword
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Roles:        []string{domain.RoleCustomer},
		Active:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	token := uuid.NewString()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.VerificationTokens().Create(ctx, domain.VerificationToken{
			ID:        idx.New().String(),
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: now.Add(VerificationTokenTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Mailer.SendVerificationEmail(ctx, email, token); err != nil {
		slogx.FromContext(ctx).Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.Any("err", err),
		)
	}

	s.Audit.Record(ctx, user.ID, domain.AuditRegister, map[string]any{"email": email})
	return user, nil
}

// ConfirmEmail activates the account behind a verification token and
// consumes the token.
func (s *RegistrationService) ConfirmEmail(ctx context.Context, token string) error {
	now := s.now()

	rec, err := s.Store.VerificationTokens().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownToken
		}
		return err
	}
	if now.After(rec.ExpiresAt) {
		return ErrTokenExpired
	}

	user, err := s.Store.Users().GetByID(ctx, rec.UserID)
	if err != nil {
		return err
	}
	if user.Active {
		// Activated out of band, the token is just stale.
		_ = s.Store.VerificationTokens().Delete(ctx, rec.ID)
		return ErrAlreadyActive
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, rec.UserID, true, now); err != nil {
			return err
		}
		return tx.VerificationTokens().Delete(ctx, rec.ID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, rec.UserID, domain.AuditEmailConfirmed, nil)
	return nil
}

// ForgotPassword mints a reset token for the account and mails it. An
// unknown email is reported as ErrUserNotFound to the caller; the HTTP
// layer masks it to avoid account enumeration.
func (s *RegistrationService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	now := s.now()
	token := uuid.NewString()
	err = s.Store.ResetTokens().Create(ctx, domain.ResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(VerificationTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, email, token); err != nil {
		slogx.FromContext(ctx).Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("err", err),
		)
	}

	s.Audit.Record(ctx, user.ID, domain.AuditPasswordResetRequested, nil)
	return nil
}

// ResetPassword sets a new password behind a live reset token, consumes
// the token, and revokes every open session for the account.
func (s *RegistrationService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	now := s.now()
	rec, err := s.Store.ResetTokens().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownToken
		}
		return err
	}
	if now.After(rec.ExpiresAt) {
		return ErrTokenExpired
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, rec.UserID, hash, now); err != nil {
			return err
		}
		if err := tx.RefreshTokens().RevokeAllForUser(ctx, rec.UserID, now); err != nil {
			return err
		}
		return tx.ResetTokens().Delete(ctx, rec.ID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, rec.UserID, domain.AuditPasswordReset, nil)
	return nil
}

func (s *RegistrationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
