// Package services contains the server-side business logic: refresh token
// lifecycle, one-time codes, and the authentication flows composing them.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/auth"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/mail"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/users"
)

// Session is what a successful sign-in hands to the transport layer: the two
// cookie values and how long each should live.
type Session struct {
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
}

// AuthService implements the account flows.
type AuthService struct {
	db      dbx.DBTX
	tx      dbx.Transactor
	repos   repomanager.RepositoryManager
	refresh *RefreshTokenService
	otp     *OTPService
	tokens  *auth.AccessTokens
	cipher  *cryptox.FieldCipher
	mailer  mail.Mailer
	clock   clockx.Clock
	logger  logging.Logger

	// sealed value compared against when the user does not exist
	dummy []byte
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	DB      dbx.DBTX
	Tx      dbx.Transactor
	Repos   repomanager.RepositoryManager
	Refresh *RefreshTokenService
	OTP     *OTPService
	Tokens  *auth.AccessTokens
	Cipher  *cryptox.FieldCipher
	Mailer  mail.Mailer
	Clock   clockx.Clock
	Logger  logging.Logger
}

func NewAuthService(d AuthDeps) (*AuthService, error) {
	dummy, err := d.Cipher.Seal(hex.EncodeToString(common.GenerateRandByteArray(16)))
	if err != nil {
		return nil, err
	}

	return &AuthService{
		db:      d.DB,
		tx:      d.Tx,
		repos:   d.Repos,
		refresh: d.Refresh,
		otp:     d.OTP,
		tokens:  d.Tokens,
		cipher:  d.Cipher,
		mailer:  d.Mailer,
		clock:   d.Clock,
		logger:  d.Logger,
		dummy:   dummy,
	}, nil
}

func (s *AuthService) users(db dbx.DBTX) users.Repository {
	return s.repos.Users(db)
}

// UserExists reports whether an account exists for userID.
func (s *AuthService) UserExists(ctx context.Context, userID string) (bool, error) {
	ok, err := s.users(s.db).Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStore, err)
	}
	return ok, nil
}

// SendOTP issues a fresh code for userID and mails it.
func (s *AuthService) SendOTP(ctx context.Context, userID string) error {
	code, err := s.otp.Generate()
	if err != nil {
		return fmt.Errorf("%w: generate otp: %v", common.ErrorInternal, err)
	}
	if err := s.otp.Issue(ctx, userID, code); err != nil {
		return err
	}

	msg, err := mail.RenderOTP(userID, code, s.otp.TTL())
	if err != nil {
		return fmt.Errorf("%w: render otp mail: %v", common.ErrorInternal, err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send otp mail: %v", common.ErrorInternal, err)
	}
	return nil
}

// VerifyOTP checks and consumes code for userID.
func (s *AuthService) VerifyOTP(ctx context.Context, userID, code string) (bool, error) {
	return s.otp.Verify(ctx, userID, code)
}

// ClearExpiredOTPs removes expired codes. It never fails.
func (s *AuthService) ClearExpiredOTPs(ctx context.Context) {
	s.otp.SweepExpired(ctx)
}

// Register creates an account with the default role and signs it in. The
// access token is minted before anything is written; the credential row,
// its refresh token and the back-reference are written in one transaction.
func (s *AuthService) Register(ctx context.Context, userID, password string) (*Session, error) {
	access, err := s.tokens.Issue(userID, models.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("%w: issue access token: %v", common.ErrorInternal, err)
	}

	sealed, err := s.cipher.Seal(password)
	if err != nil {
		return nil, fmt.Errorf("%w: seal password: %v", common.ErrorInternal, err)
	}

	var rec *models.RefreshToken
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u := &models.User{ID: userID, Password: sealed, Role: models.DefaultRole, CreatedAt: s.clock.Now()}
		if err := s.users(tx).Create(ctx, u); err != nil {
			return fmt.Errorf("%w: create user: %v", common.ErrStore, err)
		}

		var err error
		if rec, err = s.refresh.WithDB(tx).Create(ctx, userID); err != nil {
			return err
		}

		if err := s.users(tx).SetRefreshTokenID(ctx, userID, rec.ID); err != nil {
			return fmt.Errorf("%w: link refresh token: %v", common.ErrStore, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.session(access, rec), nil
}

// Login checks the password and starts a new session, revoking the previous
// refresh token of the user. Unknown users and wrong passwords both yield
// common.ErrorNotFound.
func (s *AuthService) Login(ctx context.Context, userID, password string) (*Session, error) {
	u, err := s.users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.cipher.Equal(s.dummy, password)
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStore, err)
	}

	if !s.cipher.Equal(u.Password, password) {
		return nil, common.ErrorNotFound
	}

	return s.signIn(ctx, u, nil)
}

// ChangePasswordAndLogin replaces the password of userID and starts a new
// session. It does not check the old password: callers gate it behind a
// verified OTP.
func (s *AuthService) ChangePasswordAndLogin(ctx context.Context, userID, password string) (*Session, error) {
	u, err := s.users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStore, err)
	}

	sealed, err := s.cipher.Seal(password)
	if err != nil {
		return nil, fmt.Errorf("%w: seal password: %v", common.ErrorInternal, err)
	}

	return s.signIn(ctx, u, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.users(tx).UpdatePassword(ctx, u.ID, sealed); err != nil {
			return fmt.Errorf("%w: update password: %v", common.ErrStore, err)
		}
		return nil
	})
}

// Logout revokes the refresh token, if it is known. Unknown or empty tokens
// are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	rec, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	return s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.users(tx).ClearRefreshTokenID(ctx, rec.UserID); err != nil {
			return fmt.Errorf("%w: unlink refresh token: %v", common.ErrStore, err)
		}
		return s.refresh.WithDB(tx).Delete(ctx, rec.ID)
	})
}

// Refresh exchanges a refresh token for a new access token, rotating the
// refresh token when it is due. The role is read from the store, not from
// any earlier access token.
//
// Errors: common.ErrMissingToken, common.ErrInvalidRefreshToken,
// common.ErrRefreshTokenExpired, common.ErrNoRole or a store error.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, common.ErrMissingToken
	}

	rec, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.ErrInvalidRefreshToken
	}

	rec, err = s.refresh.VerifyAndRotate(ctx, rec)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.ErrRefreshTokenExpired
	}

	u, err := s.users(s.db).GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: load user: %v", common.ErrStore, err)
	}
	if !u.Role.Valid() {
		return nil, common.ErrNoRole
	}

	access, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: issue access token: %v", common.ErrorInternal, err)
	}

	remaining, err := s.refresh.ExpiryRemaining(ctx, rec.Token)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		AccessTTL:    s.tokens.TTL(),
		RefreshToken: rec.Token,
		RefreshTTL:   remaining,
	}, nil
}

// CheckAuthentication returns the subject of a valid access token.
func (s *AuthService) CheckAuthentication(accessToken string) (string, error) {
	if accessToken == "" {
		return "", common.ErrMissingToken
	}
	if !s.tokens.Validate(accessToken) {
		return "", common.ErrorUnauthorized
	}
	sub, err := s.tokens.SubjectOf(accessToken)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return sub, nil
}

// signIn mints tokens for u. Inside one transaction it runs before, deletes
// the refresh token u currently references, creates a new one and links it.
func (s *AuthService) signIn(ctx context.Context, u *models.User, before func(context.Context, dbx.DBTX) error) (*Session, error) {
	if !u.Role.Valid() {
		return nil, common.ErrNoRole
	}

	access, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: issue access token: %v", common.ErrorInternal, err)
	}

	var rec *models.RefreshToken
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if before != nil {
			if err := before(ctx, tx); err != nil {
				return err
			}
		}

		refresh := s.refresh.WithDB(tx)
		if u.RefreshTokenID != "" {
			if err := refresh.Delete(ctx, u.RefreshTokenID); err != nil {
				return err
			}
		}

		var err error
		if rec, err = refresh.Create(ctx, u.ID); err != nil {
			return err
		}

		if err := s.users(tx).SetRefreshTokenID(ctx, u.ID, rec.ID); err != nil {
			return fmt.Errorf("%w: link refresh token: %v", common.ErrStore, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.session(access, rec), nil
}

func (s *AuthService) session(access string, rec *models.RefreshToken) *Session {
	return &Session{
		AccessToken:  access,
		AccessTTL:    s.tokens.TTL(),
		RefreshToken: rec.Token,
		RefreshTTL:   rec.Expires.Sub(s.clock.Now()),
	}
}
