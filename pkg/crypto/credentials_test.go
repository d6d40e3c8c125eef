package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 32 bytes once decoded: "test-key-for-unit-tests-32-bytes"
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

func TestNewCredentialEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "32-byte base64 key", key: testKey},
		{name: "passphrase", key: "lake-demo-key"},
		{name: "short base64 key is hashed", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key"))},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewCredentialEncryptor(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	for _, plaintext := range []string{
		"wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		"sv=2022-11-02&ss=b&srt=co&sp=rl&sig=abc%2Fdef",
		"key with\nnewlines\tand unicode 🔑",
	} {
		sealed, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, sealed)

		opened, err := enc.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}

	empty, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sealed, err := enc.Encrypt("same-secret")
		require.NoError(t, err)
		assert.False(t, seen[sealed], "ciphertext repeated")
		seen[sealed] = true
	}
}

func TestDecryptFailures(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)
	other, err := NewCredentialEncryptor("another passphrase")
	require.NoError(t, err)

	sealed, err := other.Encrypt("secret")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "wrong key", input: sealed, wantErr: "authentication failed"},
		{name: "invalid base64", input: "not-valid-base64!!!", wantErr: "base64 decode failed"},
		{name: "too short", input: base64.StdEncoding.EncodeToString([]byte("short")), wantErr: "ciphertext too short"},
		{name: "corrupted", input: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 50))), wantErr: "authentication failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncryptedValues(t *testing.T) {
	enc, err := NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	value, err := enc.EncryptValue("minio123")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(value))
	assert.True(t, strings.HasPrefix(value, "enc:"))

	plain, err := enc.DecryptValue(value)
	require.NoError(t, err)
	assert.Equal(t, "minio123", plain)

	passthrough, err := enc.DecryptValue("not-a-secret")
	require.NoError(t, err)
	assert.Equal(t, "not-a-secret", passthrough)

	empty, err := enc.EncryptValue("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)

	_, err = enc.DecryptValue("enc:garbage!!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
