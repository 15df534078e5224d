package domain

import "time"

// TwoFactorSecret is the per-user TOTP enrolment record. A row exists once
// setup has run; Enabled flips after the user proves possession of the
// secret.
type TwoFactorSecret struct {
	ID        string
	UserID    string
	Secret    string // base32 encoded
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFASetup is returned from 2FA setup so the client can render a QR code.
type TwoFASetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}
