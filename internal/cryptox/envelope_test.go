package cryptox

import (
	"crypto/aes"
	"encoding/base64"
	"testing"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

func TestEnvelope_RoundTrip(t *testing.T) {
	for _, mode := range []IVMode{RandomIV, ZeroIV} {
		env := NewEnvelope(mode)
		key, err := GenerateKeyHex()
		require.NoError(t, err)

		in := payload{UserID: "alice@example.com", Password: "hunter2"}
		ct, err := env.Encrypt(in, key)
		require.NoError(t, err)

		var out payload
		require.NoError(t, env.Decrypt(ct, key, &out))
		assert.Equal(t, in, out)
	}
}

func TestEnvelope_RandomIVPrependsIV(t *testing.T) {
	env := NewEnvelope(RandomIV)
	key, err := GenerateKeyHex()
	require.NoError(t, err)

	a, err := env.EncryptBytes([]byte(`{"a":1}`), key)
	require.NoError(t, err)
	b, err := env.EncryptBytes([]byte(`{"a":1}`), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 2*aes.BlockSize)
}

func TestEnvelope_ZeroIVIsDeterministic(t *testing.T) {
	env := NewEnvelope(ZeroIV)
	key, err := GenerateKeyHex()
	require.NoError(t, err)

	a, err := env.EncryptBytes([]byte(`{"a":1}`), key)
	require.NoError(t, err)
	b, err := env.EncryptBytes([]byte(`{"a":1}`), key)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, aes.BlockSize)
}

func TestEnvelope_PaddingFullBlock(t *testing.T) {
	env := NewEnvelope(RandomIV)
	key, err := GenerateKeyHex()
	require.NoError(t, err)

	// exactly one block of plaintext gets a whole block of padding
	doc := []byte(`"0123456789abcd"`)
	require.Len(t, doc, aes.BlockSize)

	ct, err := env.EncryptBytes(doc, key)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	assert.Len(t, raw, 3*aes.BlockSize)

	got, err := env.DecryptBytes(ct, key)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestEnvelope_DecryptFailures(t *testing.T) {
	env := NewEnvelope(RandomIV)
	key, err := GenerateKeyHex()
	require.NoError(t, err)
	other, err := GenerateKeyHex()
	require.NoError(t, err)

	ct, err := env.Encrypt(map[string]string{"k": "v"}, key)
	require.NoError(t, err)

	notJSON, err := env.EncryptBytes([]byte("plain text"), key)
	require.NoError(t, err)

	tests := []struct {
		name string
		ct   string
		key  string
	}{
		{"not base64", "%%%", key},
		{"bad key hex", ct, "zz"},
		{"short key", ct, "00ff"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, aes.BlockSize)), key},
		{"not block aligned", base64.StdEncoding.EncodeToString(make([]byte, 2*aes.BlockSize+3)), key},
		{"not json", notJSON, key},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.DecryptBytes(tt.ct, tt.key)
			assert.ErrorIs(t, err, common.ErrDecryption)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		var v map[string]string
		// a wrong key either breaks padding or yields garbage that is not JSON
		err := env.Decrypt(ct, other, &v)
		assert.ErrorIs(t, err, common.ErrDecryption)
	})
}

func TestPKCS7(t *testing.T) {
	for n := 0; n < 40; n++ {
		in := make([]byte, n)
		padded := pkcs7Pad(in, aes.BlockSize)
		assert.Zero(t, len(padded)%aes.BlockSize)
		assert.Greater(t, len(padded), n)

		out, err := pkcs7Unpad(padded, aes.BlockSize)
		require.NoError(t, err)
		assert.Len(t, out, n)
	}

	_, err := pkcs7Unpad([]byte{}, aes.BlockSize)
	assert.Error(t, err)

	bad := make([]byte, aes.BlockSize)
	bad[aes.BlockSize-1] = 17
	_, err = pkcs7Unpad(bad, aes.BlockSize)
	assert.Error(t, err)

	bad[aes.BlockSize-1] = 2
	bad[aes.BlockSize-2] = 3
	_, err = pkcs7Unpad(bad, aes.BlockSize)
	assert.Error(t, err)
}
