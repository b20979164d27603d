package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey(40)
	require.NoError(t, err)
	assert.Len(t, key, 40)

	other, err := GenerateKey(40)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = GenerateKey(0)
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	sealed, err := Encrypt("one-time-agent-key", key)
	require.NoError(t, err)
	assert.NotEqual(t, "one-time-agent-key", sealed)

	plain, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "one-time-agent-key", plain)
}

func TestEncryptEmptyPassesThrough(t *testing.T) {
	key := testKey(t)

	sealed, err := Encrypt("", key)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := Decrypt("", key)
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecryptWrongKey(t *testing.T) {
	sealed, err := Encrypt("secret", testKey(t))
	require.NoError(t, err)

	_, err = Decrypt(sealed, testKey(t))
	assert.Error(t, err)
}

func TestBadKeyRejected(t *testing.T) {
	_, err := Encrypt("secret", "short")
	assert.Error(t, err)

	_, err = Encrypt("secret", base64.StdEncoding.EncodeToString([]byte("16-byte-key-0000")))
	assert.Error(t, err)
}
