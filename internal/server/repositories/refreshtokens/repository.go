// Package refreshtokens declares the server-side repository contract for
// refresh token rows and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

// Repository stores refresh tokens in sealed form. Because the token column
// is encrypted with a random nonce, lookups by value are done by the caller
// over List.
type Repository interface {
	// Create inserts a row using ID, UserID, Sealed and Expires of t.
	Create(ctx context.Context, t *models.RefreshToken) error

	// List returns every stored row.
	List(ctx context.Context) ([]*models.RefreshToken, error)

	// GetByID returns the row or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.RefreshToken, error)

	// Rotate replaces token and expiry of row id only if its token column
	// still equals prev. It reports whether the row was updated.
	Rotate(ctx context.Context, id string, prev, next []byte, expires time.Time) (bool, error)

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}
