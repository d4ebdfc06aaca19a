package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidate(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	sig := SignData("hello", key)
	assert.True(t, ValidateSignedData("hello", sig, key))
	assert.False(t, ValidateSignedData("tampered", sig, key))
	assert.False(t, ValidateSignedData("hello", sig, []byte("another-key-another-key-another!")))
	assert.False(t, ValidateSignedData("hello", "not base64 %%%", key))
}

func TestDeriveKeyIsPurposeBound(t *testing.T) {
	secret := []byte("master-secret-master-secret-1234")

	cookieKey, err := DeriveKey(secret, "session-cookie")
	require.NoError(t, err)
	stateKey, err := DeriveKey(secret, "oauth-state")
	require.NoError(t, err)

	assert.Len(t, cookieKey, 32)
	assert.NotEqual(t, cookieKey, stateKey)

	// Derivation is deterministic for the same purpose
	again, err := DeriveKey(secret, "session-cookie")
	require.NoError(t, err)
	assert.Equal(t, cookieKey, again)
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	require.NoError(t, err)
	b, err := GenerateSecureToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
