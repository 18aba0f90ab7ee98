package models

import "time"

// RefreshToken is a refresh token row.
//
// Token holds the plaintext value only after it was issued or decrypted in
// memory; Sealed is what the store keeps.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Sealed    []byte
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the token expired before now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
