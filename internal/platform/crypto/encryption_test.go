package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New(strings.Repeat("ab", 32))
	require.NoError(t, err)
	require.True(t, svc.Configured())

	sealed, err := svc.Encrypt([]byte("%PDF-1.3 payslip"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "payslip")

	plain, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 payslip", string(plain))
}

func TestDecryptRejectsTamperedData(t *testing.T) {
	svc, err := New(strings.Repeat("0f", 32))
	require.NoError(t, err)

	sealed, err := svc.Encrypt([]byte("net pay 1000.00"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = svc.Decrypt(sealed)
	assert.Error(t, err)
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	svc, err := New("")
	require.NoError(t, err)
	assert.False(t, svc.Configured())

	out, err := svc.Encrypt([]byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New("too-short")
	assert.Error(t, err)
}
