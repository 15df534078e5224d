package totpx

import (
	"encoding/base32"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.Len(t, secret, 32) // 20 bytes -> 32 base32 chars, no padding

	_, err = base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)

	other, err := GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, secret, other)
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()

	uri := ProvisioningURI("Elysion", "alice@example.com", "JBSWY3DPEHPK3PXP")
	require.Contains(t, uri, "otpauth://totp/")
	require.Contains(t, uri, "Elysion:alice@example.com")
	require.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	require.Contains(t, uri, "issuer=Elysion")
	require.Contains(t, uri, "period=30")
	require.Contains(t, uri, "digits=6")
	require.Contains(t, uri, "algorithm=SHA1")
}

func TestVerifyCodeWithinSkew(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	codeStr, err := CodeAt(secret, now)
	require.NoError(t, err)
	code, err := strconv.Atoi(codeStr)
	require.NoError(t, err)

	require.True(t, VerifyCode(secret, code, now), "current step")
	require.True(t, VerifyCode(secret, code, now.Add(-Period*time.Second)), "one step behind")
	require.True(t, VerifyCode(secret, code, now.Add(Period*time.Second)), "one step ahead")
}

func TestVerifyCodeRejectsDistantSteps(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	codeStr, err := CodeAt(secret, now)
	require.NoError(t, err)
	code, err := strconv.Atoi(codeStr)
	require.NoError(t, err)

	require.False(t, VerifyCode(secret, code, now.Add(3*Period*time.Second)))
	require.False(t, VerifyCode(secret, code, now.Add(-3*Period*time.Second)))
}

func TestVerifyCodeWrongSecret(t *testing.T) {
	t.Parallel()

	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	codeStr, err := CodeAt(a, now)
	require.NoError(t, err)
	code, err := strconv.Atoi(codeStr)
	require.NoError(t, err)

	require.False(t, VerifyCode(b, code, now))
}

func TestParseCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "123456", want: 123456},
		{in: "000042", want: 42},
		{in: " 123456 ", want: 123456},
		{in: "", wantErr: true},
		{in: "12a456", wantErr: true},
		{in: "-12345", wantErr: true},
		{in: "+12345", wantErr: true},
		{in: "12 345", wantErr: true},
		{in: "totally not a code", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCode(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
