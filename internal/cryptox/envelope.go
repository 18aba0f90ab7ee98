package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
)

// EnvelopeKeySize is the AES-256 key length in bytes.
const EnvelopeKeySize = 32

// IVMode selects how the CBC initialisation vector is chosen.
type IVMode int

const (
	// RandomIV draws a fresh IV per message and prepends it to the
	// ciphertext: base64(IV || C).
	RandomIV IVMode = iota

	// ZeroIV uses a fixed all-zero IV and emits base64(C). It is kept for
	// clients that predate RandomIV and is only acceptable because every
	// message is encrypted under its own single-use key.
	ZeroIV
)

var errPadding = errors.New("invalid padding")

// Envelope encrypts JSON payloads with AES-256-CBC and PKCS#7 padding.
type Envelope struct {
	mode IVMode
}

// NewEnvelope returns an Envelope using the given IV mode.
func NewEnvelope(mode IVMode) *Envelope {
	return &Envelope{mode: mode}
}

// Mode reports the IV mode of e.
func (e *Envelope) Mode() IVMode {
	return e.mode
}

// GenerateKeyHex returns a fresh random AES-256 key, hex encoded.
func GenerateKeyHex() (string, error) {
	return common.MakeRandHexString(EnvelopeKeySize)
}

// Encrypt serializes v to JSON and encrypts it under keyHex.
func (e *Envelope) Encrypt(v any, keyHex string) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return e.EncryptBytes(plaintext, keyHex)
}

// EncryptBytes encrypts an already serialized JSON document under keyHex.
func (e *Envelope) EncryptBytes(plaintext []byte, keyHex string) (string, error) {
	block, err := newBlock(keyHex)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)

	var iv, out []byte
	switch e.mode {
	case ZeroIV:
		iv = make([]byte, aes.BlockSize)
		out = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	default:
		out = make([]byte, aes.BlockSize+len(padded))
		iv = out[:aes.BlockSize]
		if _, err := rand.Read(iv); err != nil {
			return "", err
		}
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	}

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts ciphertext under keyHex and unmarshals the JSON result into v.
// Every failure is reported as common.ErrDecryption.
func (e *Envelope) Decrypt(ciphertext string, keyHex string, v any) error {
	plaintext, err := e.DecryptBytes(ciphertext, keyHex)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return nil
}

// DecryptBytes decrypts ciphertext under keyHex and returns the JSON document.
// The result is guaranteed to be valid JSON.
func (e *Envelope) DecryptBytes(ciphertext string, keyHex string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	block, err := newBlock(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	iv := make([]byte, aes.BlockSize)
	if e.mode != ZeroIV {
		if len(raw) < 2*aes.BlockSize {
			return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
		}
		copy(iv, raw[:aes.BlockSize])
		raw = raw[aes.BlockSize:]
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", common.ErrDecryption)
	}

	plaintext := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, raw)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	if !json.Valid(plaintext) {
		return nil, fmt.Errorf("%w: payload is not JSON", common.ErrDecryption)
	}

	return plaintext, nil
}

func newBlock(keyHex string) (cipher.Block, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != EnvelopeKeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", EnvelopeKeySize, len(key))
	}
	return aes.NewCipher(key)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, errPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}
