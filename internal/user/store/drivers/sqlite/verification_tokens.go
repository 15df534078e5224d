package sqlite

import (
	"context"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

type verificationTokensRepo struct {
	db dbtx
}

func (r *verificationTokensRepo) Create(ctx context.Context, t domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (id, user_id, token, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Token, timeToUnix(t.ExpiresAt), timeToUnix(t.CreatedAt),
	)
	return mapConflict(err)
}

func (r *verificationTokensRepo) GetByToken(ctx context.Context, token string) (domain.VerificationToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, created_at
		 FROM verification_tokens WHERE token = ?`, token)

	var (
		t         domain.VerificationToken
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &expiresAt, &createdAt)
	if err != nil {
		return domain.VerificationToken{}, mapNotFound(err)
	}
	t.ExpiresAt = unixToTime(expiresAt)
	t.CreatedAt = unixToTime(createdAt)
	return t, nil
}

func (r *verificationTokensRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE id = ?`, id)
	return err
}

func (r *verificationTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at < ?`, timeToUnix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
