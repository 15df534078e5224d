package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/slogx"
)

// AuditService appends security events to the audit log. Recording is
// best-effort: a failed write must never unwind the operation it describes,
// so errors are logged and swallowed.
type AuditService struct {
	Store store.Store

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Record appends an audit entry and reports whether the write succeeded.
func (s *AuditService) Record(ctx context.Context, userID, action string, metadata map[string]any) bool {
	entry := domain.AuditEntry{
		ID:        idx.New().String(),
		UserID:    userID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}

	if err := s.Store.AuditLogs().Create(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to record audit entry",
			slog.String("action", action),
			slog.String("user_id", userID),
			slog.Any("err", err),
		)
		return false
	}
	return true
}

// ListForUser returns a user's audit trail, newest first.
func (s *AuditService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.AuditLogs().ListByUser(ctx, userID, limit, offset)
}

func (s *AuditService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
