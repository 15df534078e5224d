package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/elysion/userd/internal/user/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, name, password_hash, roles, active, banned, deleted_at, created_at, updated_at`

func (r *usersRepo) scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u         domain.User
		roles     string
		deletedAt sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&roles, &u.Active, &u.Banned, &deletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitRoles(roles)
	u.DeletedAt = nullUnixToTimePtr(deletedAt)
	u.CreatedAt = unixToTime(createdAt)
	u.UpdatedAt = unixToTime(updatedAt)
	return u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, roles, active, banned, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, joinRoles(u.Roles),
		u.Active, u.Banned, optionalTimeToUnix(u.DeletedAt),
		timeToUnix(u.CreatedAt), timeToUnix(u.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdateName(ctx context.Context, userID, name string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`, name, userID, at)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, newHash, userID, at)
}

func (r *usersRepo) UpdateRoles(ctx context.Context, userID string, roles []string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET roles = ?, updated_at = ? WHERE id = ?`, joinRoles(roles), userID, at)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool, at time.Time) error {
	return r.update(ctx, `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`, active, userID, at)
}

func (r *usersRepo) SetBanned(ctx context.Context, userID string, banned bool, at time.Time) error {
	return r.update(ctx, `UPDATE users SET banned = ?, updated_at = ? WHERE id = ?`, banned, userID, at)
}

func (r *usersRepo) SoftDelete(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		timeToUnix(at), timeToUnix(at), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// update runs a single-column update stamping updated_at with the caller's
// clock.
func (r *usersRepo) update(ctx context.Context, query string, value any, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, query, value, timeToUnix(at), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
