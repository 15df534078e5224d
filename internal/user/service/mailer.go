package service

import (
	"context"
	"log/slog"
)

// Mailer delivers account emails. Outbound delivery is an external
// collaborator; the service only decides when and what to send.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// LogMailer is the default Mailer. It logs the intent instead of sending,
// which is enough for local development and tests.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.Logger.Info("verification email",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.Logger.Info("password reset email",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}
