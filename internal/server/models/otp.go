package models

import "time"

// OTP is the one outstanding verification code of a user.
type OTP struct {
	UserID  string
	Code    string
	Expires time.Time
}

// Expired reports whether the code expired before now.
func (o *OTP) Expired(now time.Time) bool {
	return o.Expires.Before(now)
}
