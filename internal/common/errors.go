// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrStore      = errors.New("store error")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Integrity errors.
	ErrNoRole = errors.New("user not assigned a role")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenParse          = errors.New("token parse error")
	ErrMissingToken        = errors.New("missing token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Crypto/transport errors.
	ErrDecryption  = errors.New("decryption error")
	ErrKeyExchange = errors.New("key exchange error")
)
