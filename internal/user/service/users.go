package service

import (
	"context"
	"errors"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/slogx"
)

// Profile is the externally visible shape of a user account.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	Active    bool      `json:"active"`
	Banned    bool      `json:"banned,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DataExport bundles everything the service stores about one account.
type DataExport struct {
	Profile  Profile             `json:"profile"`
	AuditLog []domain.AuditEntry `json:"audit_log"`
}

// UserService covers profile and account administration.
type UserService struct {
	Store store.Store
	Audit *AuditService

	Now func() time.Time
}

func toProfile(u domain.User) Profile {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     roles,
		Active:    u.Active,
		Banned:    u.Banned,
		CreatedAt: u.CreatedAt,
	}
}

// GetProfile returns the profile for a user id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.getLiveUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return toProfile(user), nil
}

// UpdateName changes the display name.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) (Profile, error) {
	if _, err := s.getLiveUser(ctx, userID); err != nil {
		return Profile{}, err
	}
	if err := s.Store.Users().UpdateName(ctx, userID, name, s.now()); err != nil {
		return Profile{}, err
	}
	return s.GetProfile(ctx, userID)
}

// List returns user profiles newest-first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.Store.Users().List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, toProfile(u))
	}
	return out, nil
}

// AssignRoles replaces a user's role set.
func (s *UserService) AssignRoles(ctx context.Context, userID string, roles []string) error {
	if _, err := s.getLiveUser(ctx, userID); err != nil {
		return err
	}
	if err := s.Store.Users().UpdateRoles(ctx, userID, roles, s.now()); err != nil {
		return err
	}
	s.Audit.Record(ctx, userID, domain.AuditRoleAssigned, map[string]any{"roles": roles})
	return nil
}

// SetBanned toggles the ban flag. Banning also revokes open sessions so the
// account cannot keep refreshing.
func (s *UserService) SetBanned(ctx context.Context, userID string, banned bool) error {
	if _, err := s.getLiveUser(ctx, userID); err != nil {
		return err
	}

	now := s.now()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetBanned(ctx, userID, banned, now); err != nil {
			return err
		}
		if banned {
			return tx.RefreshTokens().RevokeAllForUser(ctx, userID, now)
		}
		return nil
	})
}

// Delete soft-deletes the account and revokes its sessions. The row stays
// for audit purposes.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if _, err := s.getLiveUser(ctx, userID); err != nil {
		return err
	}

	now := s.now()
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SoftDelete(ctx, userID, now); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllForUser(ctx, userID, now)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, userID, domain.AuditAccountDeleted, nil)
	return nil
}

// Export returns everything stored for the account as one JSON-friendly
// structure.
func (s *UserService) Export(ctx context.Context, userID string) (DataExport, error) {
	user, err := s.getLiveUser(ctx, userID)
	if err != nil {
		return DataExport{}, err
	}

	entries, err := s.Store.AuditLogs().ListByUser(ctx, userID, 1000, 0)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load audit log for export", "user_id", userID, "err", err)
		entries = nil
	}

	s.Audit.Record(ctx, userID, domain.AuditDataExported, nil)

	return DataExport{
		Profile:  toProfile(user),
		AuditLog: entries,
	}, nil
}

// getLiveUser loads a user and hides soft-deleted accounts behind
// ErrUserNotFound.
func (s *UserService) getLiveUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if user.DeletedAt != nil {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
