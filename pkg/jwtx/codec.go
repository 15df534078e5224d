package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the minimum HMAC key length. HS256 needs at least 256 bits
// of key material to be worth anything.
const MinKeyBytes = 32

var (
	ErrShortKey   = errors.New("jwtx: signing key shorter than 256 bits")
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
)

// Codec signs and verifies HS256 access tokens with a single symmetric key.
//
// Parsing is tolerant of expiry: an expired token with a valid signature
// still yields its claims alongside ErrExpired, so callers can attribute a
// request to a subject even when the token has lapsed. Malformed or
// tampered tokens never yield claims.
type Codec struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewCodec builds a codec. The secret must be at least MinKeyBytes long;
// ttl <= 0 falls back to DefaultAccessTokenTTL.
func NewCodec(secret []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinKeyBytes {
		return nil, ErrShortKey
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &Codec{key: secret, issuer: issuer, ttl: ttl}, nil
}

// TTL returns the configured access-token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign issues a signed access token for subject with the given roles.
// A nil role list is encoded as an empty list, never null.
func (c *Codec) Sign(subject string, roles []string, now time.Time) (string, error) {
	claims := NewAccessClaims(subject, roles, c.ttl, c.issuer, now)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and decodes the claims. Three outcomes:
//
//   - (claims, nil) for a well-formed, unexpired token
//   - (claims, ErrExpired) for a well-formed token past its exp
//   - (nil, ErrMalformed or ErrInvalidSig) otherwise
//
// Expiry is checked here against now rather than by the jwt library so the
// expired-but-parseable case keeps its claims.
func (c *Codec) Parse(token string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSig
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	if claims.ExpiredAt(now) {
		return claims, ErrExpired
	}
	return claims, nil
}

// Subject extracts the subject id even from an expired token. It fails only
// on malformed or tampered input.
func (c *Codec) Subject(token string, now time.Time) (string, error) {
	claims, err := c.Parse(token, now)
	if err != nil && !errors.Is(err, ErrExpired) {
		return "", err
	}
	return claims.Subject, nil
}

// IsExpired reports whether the token is past its expiry. A well-formed but
// expired token reports true without error; only malformed or tampered
// input errors.
func (c *Codec) IsExpired(token string, now time.Time) (bool, error) {
	_, err := c.Parse(token, now)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrExpired):
		return true, nil
	default:
		return false, err
	}
}

// ValidateFor reports whether the token is unexpired and bound to the
// expected subject. Revocation is not consulted: access tokens are stateless
// and die only by expiry.
func (c *Codec) ValidateFor(token, expectedSubject string, now time.Time) bool {
	claims, err := c.Parse(token, now)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}
