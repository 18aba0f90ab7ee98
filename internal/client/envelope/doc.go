// Package envelope is the client side of the encrypted auth API.
//
// Every request body is encrypted under a fresh AES key that is wrapped for
// the server's public key; responses carrying an X-Encrypted-Key header are
// decrypted with the client's private key. Session cookies live in the
// client's cookie jar.
package envelope
