package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef") // 32 bytes

func newTestCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()
	c, err := NewCodec(testKey, "userd-test", ttl)
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsShortKey(t *testing.T) {
	t.Parallel()

	_, err := NewCodec([]byte("too-short"), "userd-test", time.Minute)
	require.ErrorIs(t, err, ErrShortKey)
}

func TestSignParseRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, 15*time.Minute)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	token, err := c.Sign("01JMXK4YB0", []string{"customer", "merchant"}, now)
	require.NoError(t, err)

	claims, err := c.Parse(token, now)
	require.NoError(t, err)
	require.Equal(t, "01JMXK4YB0", claims.Subject)
	require.Equal(t, []string{"customer", "merchant"}, claims.Roles)
	require.Equal(t, "userd-test", claims.Issuer)
	require.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	require.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())

	require.True(t, c.ValidateFor(token, "01JMXK4YB0", now))
	require.False(t, c.ValidateFor(token, "someone-else", now))
}

func TestNilRolesEncodeAsEmptyList(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	now := time.Now()

	token, err := c.Sign("sub-1", nil, now)
	require.NoError(t, err)

	claims, err := c.Parse(token, now)
	require.NoError(t, err)
	require.NotNil(t, claims.Roles)
	require.Empty(t, claims.Roles)
}

func TestExpiredTokenStillYieldsSubject(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, 15*time.Minute)
	issued := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	later := issued.Add(time.Hour)

	token, err := c.Sign("sub-2", []string{"customer"}, issued)
	require.NoError(t, err)

	claims, err := c.Parse(token, later)
	require.ErrorIs(t, err, ErrExpired)
	require.NotNil(t, claims)
	require.Equal(t, "sub-2", claims.Subject)

	subject, err := c.Subject(token, later)
	require.NoError(t, err)
	require.Equal(t, "sub-2", subject)

	expired, err := c.IsExpired(token, later)
	require.NoError(t, err)
	require.True(t, expired)

	require.False(t, c.ValidateFor(token, "sub-2", later))
}

func TestTokenBornExpired(t *testing.T) {
	t.Parallel()

	// Backdate issuance past the TTL so the token is born expired.
	c := newTestCodec(t, time.Minute)
	now := time.Now().UTC().Truncate(time.Second)

	token, err := c.Sign("sub-3", nil, now.Add(-2*time.Minute))
	require.NoError(t, err)

	expired, err := c.IsExpired(token, now)
	require.NoError(t, err)
	require.True(t, expired)

	subject, err := c.Subject(token, now)
	require.NoError(t, err)
	require.Equal(t, "sub-3", subject)
}

func TestTamperedTokenFailsSignature(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	now := time.Now()

	token, err := c.Sign("sub-4", []string{"customer"}, now)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'A' {
			b[0] = 'B'
		} else {
			b[0] = 'A'
		}
		return string(b)
	}

	// A forged signature is reported as a signature failure.
	badSig := parts[0] + "." + parts[1] + "." + flip(parts[2])
	_, err = c.Parse(badSig, now)
	require.ErrorIs(t, err, ErrInvalidSig)

	// A tampered payload never parses silently either.
	badPayload := parts[0] + "." + flip(parts[1]) + "." + parts[2]
	_, err = c.Parse(badPayload, now)
	require.Error(t, err)

	_, err = c.Subject(badSig, now)
	require.Error(t, err)
}

func TestMalformedTokens(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	now := time.Now()

	for _, tc := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Parse(tc, now)
		require.Error(t, err, "input %q", tc)
		require.NotErrorIs(t, err, ErrExpired)
	}
}

func TestForeignKeyRejected(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), "userd-test", time.Minute)
	require.NoError(t, err)

	now := time.Now()
	token, err := other.Sign("sub-5", nil, now)
	require.NoError(t, err)

	_, err = c.Parse(token, now)
	require.ErrorIs(t, err, ErrInvalidSig)
}
