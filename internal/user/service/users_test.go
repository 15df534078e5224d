package service

import (
	"context"
	"testing"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/stretchr/testify/require"
)

func newTestUsers(st store.Store) *UserService {
	return &UserService{Store: st, Audit: newTestAudit(st)}
}

func TestGetAndUpdateProfile(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	ctx := context.Background()

	user := createUser(t, st, "profile@example.com")

	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "profile@example.com", p.Email)
	require.Equal(t, "Test User", p.Name)

	p, err = svc.UpdateName(ctx, user.ID, "Renamed")
	require.NoError(t, err)
	require.Equal(t, "Renamed", p.Name)
}

func TestAssignRoles(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	ctx := context.Background()

	user := createUser(t, st, "roles@example.com")

	require.NoError(t, svc.AssignRoles(ctx, user.ID, []string{domain.RoleCustomer, domain.RoleAdmin}))

	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Contains(t, p.Roles, domain.RoleAdmin)

	entries, err := st.AuditLogs().ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, domain.AuditRoleAssigned, entries[0].Action)
}

func TestBanRevokesSessions(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	auth := newTestAuth(t, st)
	ctx := context.Background()

	user := createUser(t, st, "ban@example.com")
	pair, err := auth.Login(ctx, "ban@example.com", testPassword, "", "c1")
	require.NoError(t, err)

	require.NoError(t, svc.SetBanned(ctx, user.ID, true))

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)

	_, err = auth.Login(ctx, "ban@example.com", testPassword, "", "c2")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestSoftDeleteHidesAccount(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	ctx := context.Background()

	user := createUser(t, st, "delete@example.com")
	require.NoError(t, svc.Delete(ctx, user.ID))

	_, err := svc.GetProfile(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	// The row itself survives for the audit trail
	raw, err := st.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, raw.DeletedAt)

	entries, err := st.AuditLogs().ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, domain.AuditAccountDeleted, entries[0].Action)

	// Deleting again reports not found
	require.ErrorIs(t, svc.Delete(ctx, user.ID), ErrUserNotFound)
}

func TestExportBundlesProfileAndAudit(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	ctx := context.Background()

	user := createUser(t, st, "export@example.com")
	require.NoError(t, svc.AssignRoles(ctx, user.ID, []string{domain.RoleCustomer}))

	export, err := svc.Export(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, export.Profile.ID)
	require.NotEmpty(t, export.AuditLog)

	entries, err := st.AuditLogs().ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, domain.AuditDataExported, entries[0].Action)
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)
	svc := newTestUsers(st)
	ctx := context.Background()

	createUser(t, st, "list-a@example.com")
	createUser(t, st, "list-b@example.com")

	profiles, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
}
