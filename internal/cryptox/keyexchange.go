package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
)

// KeyExchange wraps per-message AES keys for a counterparty and unwraps the
// keys the counterparty wrapped for us.
//
// The server holds its own private key and the browser client's public key;
// the CLI client holds the mirror image.
type KeyExchange struct {
	private *rsa.PrivateKey
	peer    *rsa.PublicKey
}

// NewKeyExchange returns a KeyExchange. Both keys are required.
func NewKeyExchange(private *rsa.PrivateKey, peer *rsa.PublicKey) (*KeyExchange, error) {
	if private == nil {
		return nil, fmt.Errorf("%w: private key is not configured", common.ErrKeyExchange)
	}
	if peer == nil {
		return nil, fmt.Errorf("%w: peer public key is not configured", common.ErrKeyExchange)
	}
	return &KeyExchange{private: private, peer: peer}, nil
}

// WrapKey encrypts the raw bytes of aesKeyHex for the peer (RSA PKCS#1 v1.5)
// and returns them base64 encoded.
func (k *KeyExchange) WrapKey(aesKeyHex string) (string, error) {
	raw, err := hex.DecodeString(aesKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode key: %v", common.ErrKeyExchange, err)
	}
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, k.peer, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrKeyExchange, err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapKey decrypts a base64 RSA-wrapped key with our private key and
// returns it hex encoded.
func (k *KeyExchange) UnwrapKey(wrapped string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return "", fmt.Errorf("%w: decode wrapped key: %v", common.ErrKeyExchange, err)
	}
	key, err := rsa.DecryptPKCS1v15(rand.Reader, k.private, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrKeyExchange, err)
	}
	return hex.EncodeToString(key), nil
}
