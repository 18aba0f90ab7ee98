// Package otps stores one-time verification codes. Two backends are
// provided: PostgreSQL and Redis.
package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

// Repository keeps at most one outstanding code per user.
type Repository interface {
	// Upsert stores o, replacing any previous code of o.UserID.
	Upsert(ctx context.Context, o *models.OTP) error

	// FindByCode returns a row holding code or common.ErrorNotFound. When
	// several users hold the same code, the row of preferUser wins.
	FindByCode(ctx context.Context, code, preferUser string) (*models.OTP, error)

	// Consume deletes the (userID, code) row and reports whether it existed.
	Consume(ctx context.Context, userID, code string) (bool, error)

	// DeleteExpired removes rows that expired before now and returns how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
