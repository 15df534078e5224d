package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Short access tokens plus long-lived persisted
// refresh tokens is the model this service runs on; access tokens are not
// individually revocable, so keep them short.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the fixed access-token schema. The role list is a typed claim,
// not an open map; it serializes compactly and is never null (an empty
// slice marshals as []).
type Claims struct {
	jwt.RegisteredClaims

	// Roles the subject holds, e.g. ["customer"] or ["admin", "merchant"].
	Roles []string `json:"roles"`
}

// NewAccessClaims builds minimally-correct claims for a subject.
func NewAccessClaims(
	subject string,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	if roles == nil {
		roles = []string{}
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Roles: roles,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiredAt reports whether the claims are expired relative to now. Claims
// without an exp are treated as non-expiring.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// HasRole reports whether the role list contains name.
func (c *Claims) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}
