package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	at := NewAccessTokens("super-secret", time.Hour, clockx.NewFake(epoch))

	tok, err := at.Issue("user@example.com", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !at.Validate(tok) {
		t.Fatalf("freshly issued token must validate")
	}

	sub, err := at.SubjectOf(tok)
	if err != nil {
		t.Fatalf("SubjectOf error: %v", err)
	}
	if sub != "user@example.com" {
		t.Fatalf("subject mismatch: got %q", sub)
	}

	role, err := at.RoleOf(tok)
	if err != nil {
		t.Fatalf("RoleOf error: %v", err)
	}
	if role != models.RoleUser {
		t.Fatalf("role mismatch: got %q", role)
	}
}

func TestValidate_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := clockx.NewFake(epoch)
	at := NewAccessTokens("secret", 15*time.Minute, clock)

	tok, err := at.Issue("u1", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock.Advance(15*time.Minute - time.Second)
	if !at.Validate(tok) {
		t.Fatalf("token must still be valid before exp")
	}

	clock.Advance(2 * time.Second)
	if at.Validate(tok) {
		t.Fatalf("token must be invalid once now > iat + ttl")
	}

	_, err = at.SubjectOf(tok)
	if !errors.Is(err, common.ErrTokenParse) || !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenParse wrapping ErrTokenExpired, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	clock := clockx.NewFake(epoch)
	tok, err := NewAccessTokens("right-secret", time.Hour, clock).Issue("u2", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if NewAccessTokens("wrong-secret", time.Hour, clock).Validate(tok) {
		t.Fatalf("token signed with another secret must not validate")
	}
}

func TestValidate_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	clock := clockx.NewFake(epoch)
	at := NewAccessTokens("secret", time.Hour, clock)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
		},
		Role: "USER",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if at.Validate(tok) {
		t.Fatalf("HS256 token must be rejected")
	}
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	at := NewAccessTokens("k", time.Hour, clockx.NewFake(epoch))
	for _, tok := range []string{"", "not.a.jwt", "a.b", "...."} {
		if at.Validate(tok) {
			t.Fatalf("malformed token %q must not validate", tok)
		}
		if _, err := at.SubjectOf(tok); !errors.Is(err, common.ErrTokenParse) {
			t.Fatalf("expected ErrTokenParse for %q, got %v", tok, err)
		}
	}
}

func TestRoleOf_UnknownRole(t *testing.T) {
	t.Parallel()

	at := NewAccessTokens("k", time.Hour, clockx.NewFake(epoch))
	tok, err := at.Issue("u4", models.Role("ROOT"))
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := at.RoleOf(tok); !errors.Is(err, common.ErrTokenParse) {
		t.Fatalf("expected ErrTokenParse, got %v", err)
	}
}
