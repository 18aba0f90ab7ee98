package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const refreshTokenBytes = 32

// RefreshTokenService issues, looks up, rotates and revokes refresh tokens.
//
// Token values are stored sealed with a random nonce, so every lookup by
// value decrypts the stored rows one by one.
type RefreshTokenService struct {
	db     dbx.DBTX
	repos  repomanager.RepositoryManager
	cipher *cryptox.FieldCipher
	window time.Duration
	clock  clockx.Clock
}

// NewRefreshTokenService returns a service operating on db. window is the
// sliding window: both the lifetime of a new token and the distance from
// expiry at which a used token is rotated.
func NewRefreshTokenService(db dbx.DBTX, repos repomanager.RepositoryManager, cipher *cryptox.FieldCipher, window time.Duration, clock clockx.Clock) *RefreshTokenService {
	return &RefreshTokenService{db: db, repos: repos, cipher: cipher, window: window, clock: clock}
}

// WithDB returns a copy of s bound to db, typically a transaction.
func (s *RefreshTokenService) WithDB(db dbx.DBTX) *RefreshTokenService {
	c := *s
	c.db = db
	return &c
}

// Window is the sliding window duration.
func (s *RefreshTokenService) Window() time.Duration {
	return s.window
}

func (s *RefreshTokenService) repo() refreshtokens.Repository {
	return s.repos.RefreshTokens(s.db)
}

// Create issues a new token for userID. The returned record is the only
// place the plaintext value exists.
func (s *RefreshTokenService) Create(ctx context.Context, userID string) (*models.RefreshToken, error) {
	token, sealed, err := s.generate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Sealed:    sealed,
		Expires:   now.Add(s.window),
		CreatedAt: now,
	}

	if err := s.repo().Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: create refresh token: %v", common.ErrStore, err)
	}
	return rec, nil
}

// FindByToken returns the record whose value is token, or nil when there is
// none.
func (s *RefreshTokenService) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if token == "" {
		return nil, nil
	}

	rows, err := s.repo().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list refresh tokens: %v", common.ErrStore, err)
	}

	for _, row := range rows {
		if s.cipher.Equal(row.Sealed, token) {
			row.Token = token
			return row, nil
		}
	}
	return nil, nil
}

// VerifyAndRotate applies the sliding window to rec:
//
//   - expired: the row is deleted and nil is returned;
//   - expiring within the window: the value and expiry are replaced in place
//     and the updated record is returned;
//   - otherwise rec is returned unchanged.
//
// The replacement only succeeds if the row still holds rec's value. A
// concurrent rotation that got there first makes this call fail with
// common.ErrInvalidRefreshToken.
func (s *RefreshTokenService) VerifyAndRotate(ctx context.Context, rec *models.RefreshToken) (*models.RefreshToken, error) {
	now := s.clock.Now()

	if rec.Expired(now) {
		if err := s.repo().Delete(ctx, rec.ID); err != nil {
			return nil, fmt.Errorf("%w: delete expired refresh token: %v", common.ErrStore, err)
		}
		return nil, nil
	}

	if !rec.Expires.Before(now.Add(s.window)) {
		return rec, nil
	}

	token, sealed, err := s.generate(ctx)
	if err != nil {
		return nil, err
	}
	expires := now.Add(s.window)

	ok, err := s.repo().Rotate(ctx, rec.ID, rec.Sealed, sealed, expires)
	if err != nil {
		return nil, fmt.Errorf("%w: rotate refresh token: %v", common.ErrStore, err)
	}
	if !ok {
		return nil, common.ErrInvalidRefreshToken
	}

	rotated := *rec
	rotated.Token = token
	rotated.Sealed = sealed
	rotated.Expires = expires
	return &rotated, nil
}

// ExpiryRemaining returns how long token stays valid. It fails with
// common.ErrorNotFound for unknown tokens and common.ErrRefreshTokenExpired
// for expired ones.
func (s *RefreshTokenService) ExpiryRemaining(ctx context.Context, token string) (time.Duration, error) {
	rec, err := s.FindByToken(ctx, token)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, common.ErrorNotFound
	}

	now := s.clock.Now()
	if rec.Expired(now) {
		return 0, common.ErrRefreshTokenExpired
	}
	return rec.Expires.Sub(now), nil
}

// DeleteByToken removes the row holding token; common.ErrorNotFound when
// there is none.
func (s *RefreshTokenService) DeleteByToken(ctx context.Context, token string) error {
	rec, err := s.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if rec == nil {
		return common.ErrorNotFound
	}
	return s.Delete(ctx, rec.ID)
}

// Delete removes the row with the given id, if any.
func (s *RefreshTokenService) Delete(ctx context.Context, id string) error {
	if err := s.repo().Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete refresh token: %v", common.ErrStore, err)
	}
	return nil
}

// generate draws random values until one collides with no stored token.
func (s *RefreshTokenService) generate(ctx context.Context) (string, []byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		token, err := common.MakeRandHexString(refreshTokenBytes)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		existing, err := s.FindByToken(ctx, token)
		if err != nil {
			return "", nil, err
		}
		if existing != nil {
			continue
		}

		sealed, err := s.cipher.Seal(token)
		if err != nil {
			return "", nil, fmt.Errorf("%w: seal refresh token: %v", common.ErrorInternal, err)
		}
		return token, sealed, nil
	}
}
