package store

import (
	"context"
	"errors"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	TwoFactorSecrets() TwoFactorSecrets
	VerificationTokens() VerificationTokens
	ResetTokens() ResetTokens
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetByID returns a user by id, soft-deleted rows included.
	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByEmail looks a user up by email address.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// Create inserts a new user (id is provided by app via ULID).
	Create(ctx context.Context, u domain.User) error

	// UpdateName mutates the display name, stamping updated_at with at.
	UpdateName(ctx context.Context, userID, name string, at time.Time) error

	// UpdatePasswordHash sets the password_hash (argon2), stamping updated_at with at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error

	// UpdateRoles replaces the user's role set.
	UpdateRoles(ctx context.Context, userID string, roles []string, at time.Time) error

	// SetActive flips the email-confirmed flag.
	SetActive(ctx context.Context, userID string, active bool, at time.Time) error

	// SetBanned flips the banned flag.
	SetBanned(ctx context.Context, userID string, banned bool, at time.Time) error

	// SoftDelete stamps deleted_at without removing the row.
	SoftDelete(ctx context.Context, userID string, at time.Time) error

	// List returns users ordered by creation date (newest first).
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type RefreshTokens interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, t domain.RefreshToken) error

	// GetByHash returns the token by its SHA-256 fingerprint.
	GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// Revoke flips revoked=1 for the token with the given fingerprint.
	Revoke(ctx context.Context, hash string, at time.Time) error

	// RevokeAllForUser bulk revocation (e.g., password reset, ban).
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error

	// DeleteExpired removes tokens past their expiry (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TwoFactorSecrets interface {
	// GetByUserID returns the enrolment record for a user.
	GetByUserID(ctx context.Context, userID string) (domain.TwoFactorSecret, error)

	// Upsert replaces the user's secret and resets enabled to false.
	Upsert(ctx context.Context, s domain.TwoFactorSecret) error

	// SetEnabled flips the enabled flag.
	SetEnabled(ctx context.Context, userID string, enabled bool, at time.Time) error

	// Delete removes the enrolment record entirely.
	Delete(ctx context.Context, userID string) error
}

type VerificationTokens interface {
	Create(ctx context.Context, t domain.VerificationToken) error

	// GetByToken returns the record by its opaque token value.
	GetByToken(ctx context.Context, token string) (domain.VerificationToken, error)

	// Delete removes a consumed token.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes tokens past their expiry (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ResetTokens interface {
	Create(ctx context.Context, t domain.ResetToken) error

	// GetByToken returns the record by its opaque token value.
	GetByToken(ctx context.Context, token string) (domain.ResetToken, error)

	// Delete removes a consumed token.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes tokens past their expiry (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogs interface {
	// Create appends an audit entry.
	Create(ctx context.Context, e domain.AuditEntry) error

	// ListByUser returns entries for a user, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error)
}
