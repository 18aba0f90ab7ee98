// Package cryptox holds the cryptographic primitives of the auth service:
//
//   - Envelope: AES-256-CBC encryption of JSON payloads under a per-message key.
//   - KeyExchange: RSA PKCS#1 v1.5 wrapping of those per-message keys.
//   - FieldCipher: AES-256-GCM encryption of columns stored at rest.
//
// Keys travel as hex strings and ciphertexts as standard base64, matching the
// browser client that speaks the same envelope format.
package cryptox
