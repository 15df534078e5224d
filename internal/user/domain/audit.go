package domain

import "time"

// Audit actions recorded against user accounts.
const (
	AuditRegister               = "REGISTER"
	AuditEmailConfirmed         = "EMAIL_CONFIRMED"
	AuditLogin                  = "LOGIN"
	AuditRefreshToken           = "REFRESH_TOKEN"
	AuditLogout                 = "LOGOUT"
	AuditTwoFAEnabled           = "2FA_ENABLED"
	AuditTwoFADisabled          = "2FA_DISABLED"
	AuditPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	AuditPasswordReset          = "PASSWORD_RESET"
	AuditRoleAssigned           = "ROLE_ASSIGNED"
	AuditAccountDeleted         = "ACCOUNT_DELETED"
	AuditDataExported           = "DATA_EXPORTED"
)

// AuditEntry records a security-relevant event against a user account.
type AuditEntry struct {
	ID        string
	UserID    string
	Action    string
	Metadata  map[string]any // stored as JSON text
	CreatedAt time.Time
}
