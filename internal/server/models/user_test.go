package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("USER")
	assert.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	r, err = ParseRole("ADMIN")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("")
	assert.Error(t, err)
	_, err = ParseRole("user")
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, (&OTP{Expires: now.Add(-time.Millisecond)}).Expired(now))
	assert.False(t, (&OTP{Expires: now}).Expired(now))
	assert.True(t, (&RefreshToken{Expires: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&RefreshToken{Expires: now.Add(time.Second)}).Expired(now))
}
