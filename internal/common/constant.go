// Package common contains shared constants and sentinel errors used across
// the watchlist auth components.
package common

const (
	// EncryptedKeyHeader carries the RSA-wrapped AES key of an encrypted
	// request or response.
	EncryptedKeyHeader = "X-Encrypted-Key"

	// EncryptedDataField is the JSON body field holding the AES ciphertext.
	EncryptedDataField = "encryptedData"
)
