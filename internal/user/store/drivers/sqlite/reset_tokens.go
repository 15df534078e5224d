package sqlite

import (
	"context"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) Create(ctx context.Context, t domain.ResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reset_tokens (id, user_id, token, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Token, timeToUnix(t.ExpiresAt), timeToUnix(t.CreatedAt),
	)
	return mapConflict(err)
}

func (r *resetTokensRepo) GetByToken(ctx context.Context, token string) (domain.ResetToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, created_at
		 FROM reset_tokens WHERE token = ?`, token)

	var (
		t         domain.ResetToken
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &expiresAt, &createdAt)
	if err != nil {
		return domain.ResetToken{}, mapNotFound(err)
	}
	t.ExpiresAt = unixToTime(expiresAt)
	t.CreatedAt = unixToTime(createdAt)
	return t, nil
}

func (r *resetTokensRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE id = ?`, id)
	return err
}

func (r *resetTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE expires_at < ?`, timeToUnix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
