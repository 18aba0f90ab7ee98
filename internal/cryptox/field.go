package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const fieldKeyInfo = "watchlist-auth/field-encryption/v1"

// FieldCipher encrypts individual column values stored at rest.
//
// The AES-256-GCM key is derived from the configured secret with HKDF-SHA256.
// Output layout is nonce || ciphertext || tag, so equal plaintexts produce
// different ciphertexts and lookups must decrypt to compare.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives a FieldCipher from secret.
func NewFieldCipher(secret string) (*FieldCipher, error) {
	if secret == "" {
		return nil, errors.New("field encryption secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(fieldKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &FieldCipher{aead: aead}, nil
}

// Seal encrypts plaintext.
func (f *FieldCipher) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, f.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return f.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a value produced by Seal.
func (f *FieldCipher) Open(sealed []byte) (string, error) {
	n := f.aead.NonceSize()
	if len(sealed) < n+f.aead.Overhead() {
		return "", errors.New("sealed value too short")
	}
	plaintext, err := f.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Equal reports whether sealed decrypts to candidate. Undecryptable values
// never match.
func (f *FieldCipher) Equal(sealed []byte, candidate string) bool {
	plaintext, err := f.Open(sealed)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(candidate)) == 1
}
