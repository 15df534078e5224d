package sqlite

import (
	"context"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, timeToUnix(t.ExpiresAt), t.Revoked,
		timeToUnix(t.CreatedAt), timeToUnix(t.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at, updated_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		t         domain.RefreshToken
		expiresAt int64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &t.Revoked, &createdAt, &updatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = unixToTime(expiresAt)
	t.CreatedAt = unixToTime(createdAt)
	t.UpdatedAt = unixToTime(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) Revoke(ctx context.Context, hash string, at time.Time) error {
	// Already-revoked rows are left alone so updated_at keeps recording
	// when the revocation actually happened.
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE token_hash = ? AND revoked = 0`,
		timeToUnix(at), hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0`,
		timeToUnix(at), userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, timeToUnix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
