// Package totpx wraps time-based one-time password generation and
// verification for the two-factor login flow. Codes are six digits over a
// 30-second step with one step of clock-skew tolerance either side.
package totpx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30
	// Digits is the code length.
	Digits = 6
	// Skew is how many steps of drift either side of now still validate.
	Skew = 1

	// secretBytes is the raw entropy behind a shared secret (160 bits,
	// the conventional authenticator-app size).
	secretBytes = 20
)

// ErrInvalidFormat reports a code string that is not a plain positive number.
var ErrInvalidFormat = errors.New("totpx: code is not numeric")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a fresh base32-encoded shared secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("totpx: generate secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app scans from
// a QR code. Pure formatting, no side effects.
func ProvisioningURI(issuer, accountLabel, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", strconv.Itoa(Digits))
	v.Set("period", strconv.Itoa(Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountLabel,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// VerifyCode checks a parsed numeric code against the secret at the given
// time, accepting codes from the current step and one step either side.
func VerifyCode(secret string, code int, now time.Time) bool {
	if code < 0 {
		return false
	}
	ok, err := totp.ValidateCustom(
		fmt.Sprintf("%0*d", Digits, code),
		secret,
		now,
		totp.ValidateOpts{
			Period:    Period,
			Skew:      Skew,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	)
	if err != nil {
		// Bad secret material; never accept.
		return false
	}
	return ok
}

// CodeAt computes the expected code for a secret at a point in time.
// Exposed for tests and enrollment previews.
func CodeAt(secret string, now time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, now, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("totpx: generate code: %w", err)
	}
	return code, nil
}

// ParseCode strictly parses a user-supplied code string. Whitespace at the
// edges is tolerated since it is usually a copy-paste artifact; anything
// else non-numeric fails with ErrInvalidFormat.
func ParseCode(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidFormat
		}
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	return code, nil
}
