package sqlite

import (
	"context"
	"database/sql"

	"github.com/elysion/userd/internal/user/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rollbacks; outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created, so we just return nil.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                       { return &usersRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens       { return &refreshTokensRepo{db: t.tx} }
func (t *txStore) TwoFactorSecrets() store.TwoFactorSecrets { return &twoFactorSecretsRepo{db: t.tx} }
func (t *txStore) VerificationTokens() store.VerificationTokens {
	return &verificationTokensRepo{db: t.tx}
}
func (t *txStore) ResetTokens() store.ResetTokens { return &resetTokensRepo{db: t.tx} }
func (t *txStore) AuditLogs() store.AuditLogs     { return &auditLogsRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations run before any tx starts
