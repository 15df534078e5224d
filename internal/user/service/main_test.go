package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/internal/user/store/drivers/sqlite"
	"github.com/elysion/userd/pkg/cryptox"
	"github.com/elysion/userd/pkg/idx"
	"github.com/elysion/userd/pkg/jwtx"
	"github.com/elysion/userd/pkg/ratex"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "userd-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "userd-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestAudit(st store.Store) *AuditService {
	return &AuditService{Store: st}
}

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "userd-test", 15*time.Minute)
	require.NoError(t, err)
	return codec
}

func newTestAuth(t *testing.T, st store.Store) *AuthService {
	t.Helper()

	return &AuthService{
		Store: st,
		Codec: newTestCodec(t),
		Guard: ratex.NewLoginGuard(),
		Audit: newTestAudit(st),
	}
}

const testPassword = "correct horse battery staple"

// createUser inserts an active user with testPassword as credential.
func createUser(t *testing.T, st store.Store, email string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Roles:        []string{domain.RoleCustomer},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
