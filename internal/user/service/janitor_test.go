package service

import (
	"context"
	"testing"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestJanitorSweepDeletesOnlyExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, st, "janitor@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	seedTokens := func(expires time.Time, suffix string) {
		require.NoError(t, st.RefreshTokens().Create(ctx, domain.RefreshToken{
			ID: idx.New().String(), UserID: user.ID,
			TokenHash: "rt-" + suffix, ExpiresAt: expires,
			CreatedAt: now, UpdatedAt: now,
		}))
		require.NoError(t, st.VerificationTokens().Create(ctx, domain.VerificationToken{
			ID: idx.New().String(), UserID: user.ID,
			Token: "vt-" + suffix, ExpiresAt: expires, CreatedAt: now,
		}))
		require.NoError(t, st.ResetTokens().Create(ctx, domain.ResetToken{
			ID: idx.New().String(), UserID: user.ID,
			Token: "pt-" + suffix, ExpiresAt: expires, CreatedAt: now,
		}))
	}
	seedTokens(now.Add(-time.Hour), "stale")
	seedTokens(now.Add(time.Hour), "live")

	janitor := NewJanitorService(st, discardLogger(), time.Hour)
	janitor.Sweep(ctx, now)

	// Expired rows are gone from all three tables
	_, err := st.RefreshTokens().GetByHash(ctx, "rt-stale")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.VerificationTokens().GetByToken(ctx, "vt-stale")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ResetTokens().GetByToken(ctx, "pt-stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Live rows survive
	_, err = st.RefreshTokens().GetByHash(ctx, "rt-live")
	require.NoError(t, err)
	_, err = st.VerificationTokens().GetByToken(ctx, "vt-live")
	require.NoError(t, err)
	_, err = st.ResetTokens().GetByToken(ctx, "pt-live")
	require.NoError(t, err)
}

func TestJanitorStartStop(t *testing.T) {
	st := newTestStore(t)

	janitor := NewJanitorService(st, discardLogger(), time.Hour)
	janitor.Start()
	janitor.Stop() // blocks until the startup sweep finished
}

func TestJanitorDefaultInterval(t *testing.T) {
	st := newTestStore(t)

	janitor := NewJanitorService(st, discardLogger(), 0)
	require.Equal(t, 24*time.Hour, janitor.Interval)
}
