// Package users declares the credential store and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

// Repository persists credential rows. Passwords arrive already sealed.
type Repository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *models.User) error

	// GetByID returns the user or common.ErrorNotFound.
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// Exists reports whether a row exists for userID.
	Exists(ctx context.Context, userID string) (bool, error)

	// UpdatePassword replaces the sealed password; common.ErrorNotFound when
	// the user does not exist.
	UpdatePassword(ctx context.Context, userID string, sealed []byte) error

	// SetRefreshTokenID points the user at its current refresh token row.
	SetRefreshTokenID(ctx context.Context, userID, tokenID string) error

	// ClearRefreshTokenID drops the back-reference. Missing users are ignored.
	ClearRefreshTokenID(ctx context.Context, userID string) error
}
