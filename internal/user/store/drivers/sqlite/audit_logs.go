package sqlite

import (
	"context"
	"encoding/json"

	"github.com/elysion/userd/internal/user/domain"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) Create(ctx context.Context, e domain.AuditEntry) error {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, metadata, timeToUnix(e.CreatedAt),
	)
	return err
}

func (r *auditLogsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, metadata, created_at
		 FROM audit_logs WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			metadata  string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &metadata, &createdAt); err != nil {
			return nil, err
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, err
			}
		}
		e.CreatedAt = unixToTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
