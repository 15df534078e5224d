package sqlite

import (
	"context"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

type twoFactorSecretsRepo struct {
	db dbtx
}

func (r *twoFactorSecretsRepo) GetByUserID(ctx context.Context, userID string) (domain.TwoFactorSecret, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, secret, enabled, created_at, updated_at
		 FROM twofa_secrets WHERE user_id = ?`, userID)

	var (
		s         domain.TwoFactorSecret
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Secret, &s.Enabled, &createdAt, &updatedAt)
	if err != nil {
		return domain.TwoFactorSecret{}, mapNotFound(err)
	}
	s.CreatedAt = unixToTime(createdAt)
	s.UpdatedAt = unixToTime(updatedAt)
	return s, nil
}

// Upsert replaces any existing secret for the user and resets enabled,
// forcing re-verification before the new secret counts.
func (r *twoFactorSecretsRepo) Upsert(ctx context.Context, s domain.TwoFactorSecret) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO twofa_secrets (id, user_id, secret, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   secret = excluded.secret,
		   enabled = 0,
		   updated_at = excluded.updated_at`,
		s.ID, s.UserID, s.Secret, timeToUnix(s.CreatedAt), timeToUnix(s.UpdatedAt),
	)
	return err
}

func (r *twoFactorSecretsRepo) SetEnabled(ctx context.Context, userID string, enabled bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE twofa_secrets SET enabled = ?, updated_at = ? WHERE user_id = ?`,
		enabled, timeToUnix(at), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *twoFactorSecretsRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM twofa_secrets WHERE user_id = ?`, userID)
	return err
}
