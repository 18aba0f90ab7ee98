// Package auth issues and validates the short-lived access tokens carried
// in the access cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims: sub, iat and exp plus the user role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AccessTokens signs HS512 JWTs with a single static secret.
// There is no revocation; a token is valid until exp.
type AccessTokens struct {
	secret []byte
	ttl    time.Duration
	clock  clockx.Clock
}

// NewAccessTokens returns an AccessTokens issuing tokens valid for ttl.
func NewAccessTokens(secret string, ttl time.Duration, clock clockx.Clock) *AccessTokens {
	return &AccessTokens{secret: []byte(secret), ttl: ttl, clock: clock}
}

// TTL is the lifetime of issued tokens.
func (a *AccessTokens) TTL() time.Duration {
	return a.ttl
}

// Issue signs a token for subject with role.
func (a *AccessTokens) Issue(subject string, role models.Role) (string, error) {
	now := a.clock.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Role: string(role),
	})

	return token.SignedString(a.secret)
}

// Validate reports whether token carries a good HS512 signature and has not
// expired.
func (a *AccessTokens) Validate(token string) bool {
	_, err := a.parse(token)
	return err == nil
}

// SubjectOf returns the sub claim of a valid token.
func (a *AccessTokens) SubjectOf(token string) (string, error) {
	claims, err := a.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RoleOf returns the role claim of a valid token.
func (a *AccessTokens) RoleOf(token string) (models.Role, error) {
	claims, err := a.parse(token)
	if err != nil {
		return "", err
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTokenParse, err)
	}
	return role, nil
}

func (a *AccessTokens) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrTokenParse, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrTokenParse, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: %w", common.ErrTokenParse, common.ErrInvalidToken)
	}

	return claims, nil
}
