package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, o *models.OTP) error {
	query := `
		INSERT INTO otps (user_id, otp, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET otp = EXCLUDED.otp, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, o.UserID, o.Code, o.Expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByCode(ctx context.Context, code, preferUser string) (*models.OTP, error) {
	query := `
		SELECT user_id, otp, expires_at
		FROM otps
		WHERE otp = $1
		ORDER BY (user_id = $2) DESC
		LIMIT 1
	`
	o := &models.OTP{}
	if err := r.db.QueryRowContext(ctx, query, code, preferUser).Scan(&o.UserID, &o.Code, &o.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, userID, code string) (bool, error) {
	query := `
		DELETE FROM otps
		WHERE user_id = $1 AND otp = $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, code)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM otps
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
