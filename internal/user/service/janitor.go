package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/elysion/userd/internal/user/store"
)

// JanitorService periodically deletes expired refresh, email-verification
// and password-reset tokens so the tables don't grow without bound.
type JanitorService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewJanitorService creates a janitor with the given sweep interval.
// If interval is 0 or negative, defaults to 24 hours.
func NewJanitorService(st store.Store, logger *slog.Logger, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &JanitorService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut it
// down gracefully.
func (s *JanitorService) Start() {
	go s.run()
	s.Logger.Info("janitor started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep is done.
func (s *JanitorService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("janitor stopped")
}

func (s *JanitorService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.Sweep(context.Background(), time.Now())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background(), time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes expired token rows. Each deletion is independent: a failure
// in one table doesn't stop the others.
func (s *JanitorService) Sweep(ctx context.Context, now time.Time) {
	var total int64

	if n, err := s.Store.RefreshTokens().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		total += n
	}

	if n, err := s.Store.VerificationTokens().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired verification tokens", "error", err)
	} else {
		total += n
	}

	if n, err := s.Store.ResetTokens().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired reset tokens", "error", err)
	} else {
		total += n
	}

	s.Logger.Info("janitor sweep completed", "deleted", total)
}
