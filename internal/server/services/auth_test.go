package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_SignsIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	s, err := e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, accessTTL, s.AccessTTL)
	assert.Equal(t, window, s.RefreshTTL)

	sub, err := e.auth.CheckAuthentication(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", sub)

	u, err := e.store.Users().GetByID(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, []byte("pw"), u.Password)
	assert.True(t, e.cipher.Equal(u.Password, "pw"))

	rec, err := e.refresh.FindByToken(ctx, s.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, rec.ID, u.RefreshTokenID)
}

func TestRegister_Duplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	_, err = e.auth.Register(ctx, "a@b.com", "other")
	assert.ErrorIs(t, err, common.ErrStore)
}

func TestRegister_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := newEnv(t)
	repos := repomanager.NewPostgresRepositoryManager()
	refresh := NewRefreshTokenService(db, repos, e.cipher, window, e.clock)

	svc, err := NewAuthService(AuthDeps{
		DB:      db,
		Tx:      dbx.NewSQLTransactor(db, nil),
		Repos:   repos,
		Refresh: refresh,
		OTP:     e.otp,
		Tokens:  e.tokens,
		Cipher:  e.cipher,
		Mailer:  e.mailer,
		Clock:   e.clock,
		Logger:  logging.Nop(),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*token.*FROM\s+refresh_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}))
	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = svc.Register(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.auth.Login(ctx, "nobody@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	s, err := e.auth.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, s.RefreshToken)

	// the refresh token from registration was revoked
	old, err := e.refresh.FindByToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, old)

	all, err := e.store.RefreshTokens().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLogin_NoRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sealed, err := e.cipher.Seal("pw")
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(ctx, &models.User{ID: "a@b.com", Password: sealed}))

	_, err = e.auth.Login(ctx, "a@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrNoRole)
}

func TestChangePasswordAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, "a@b.com", "old")
	require.NoError(t, err)

	s, err := e.auth.ChangePasswordAndLogin(ctx, "a@b.com", "new")
	require.NoError(t, err)
	assert.NotEmpty(t, s.AccessToken)

	_, err = e.auth.Login(ctx, "a@b.com", "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = e.auth.Login(ctx, "a@b.com", "new")
	assert.NoError(t, err)

	_, err = e.auth.ChangePasswordAndLogin(ctx, "nobody@b.com", "new")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	s, err := e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	require.NoError(t, e.auth.Logout(ctx, s.RefreshToken))

	u, err := e.store.Users().GetByID(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Empty(t, u.RefreshTokenID)

	_, err = e.auth.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	// unknown and empty tokens are fine
	assert.NoError(t, e.auth.Logout(ctx, s.RefreshToken))
	assert.NoError(t, e.auth.Logout(ctx, ""))
}

func TestRefresh(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	s, err := e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	r, err := e.auth.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, r.RefreshToken)
	assert.Equal(t, window, r.RefreshTTL)

	sub, err := e.auth.CheckAuthentication(r.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", sub)

	_, err = e.auth.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	_, err = e.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	e.clock.Advance(window + time.Second)
	_, err = e.auth.Refresh(ctx, r.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

// staleRotations loses every rotation, as if another request rotated first.
type staleRotations struct {
	refreshtokens.Repository
}

func (staleRotations) Rotate(context.Context, string, []byte, []byte, time.Time) (bool, error) {
	return false, nil
}

type staleManager struct {
	repomanager.RepositoryManager
}

func (m staleManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return staleRotations{m.RepositoryManager.RefreshTokens(db)}
}

func TestRefresh_LostRotationIsInvalid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	repos := staleManager{repomanager.NewMemoryRepositoryManager(e.store)}
	refresh := NewRefreshTokenService(nil, repos, e.cipher, window, e.clock)
	svc, err := NewAuthService(AuthDeps{
		Tx:      dbx.NoTx{},
		Repos:   repos,
		Refresh: refresh,
		OTP:     e.otp,
		Tokens:  e.tokens,
		Cipher:  e.cipher,
		Mailer:  e.mailer,
		Clock:   e.clock,
		Logger:  logging.Nop(),
	})
	require.NoError(t, err)

	s, err := svc.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	_, err = svc.Refresh(ctx, s.RefreshToken)
	require.ErrorIs(t, err, common.ErrInvalidRefreshToken)
	assert.NotErrorIs(t, err, common.ErrRefreshTokenExpired)

	rec, err := refresh.FindByToken(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotNil(t, rec, "row must survive a lost rotation")
}

func TestRefresh_UsesStoredRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sealed, err := e.cipher.Seal("pw")
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(ctx, &models.User{ID: "root@b.com", Password: sealed, Role: models.RoleAdmin}))

	s, err := e.auth.Login(ctx, "root@b.com", "pw")
	require.NoError(t, err)

	r, err := e.auth.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)

	role, err := e.tokens.RoleOf(r.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestCheckAuthentication(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.CheckAuthentication("")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = e.auth.CheckAuthentication("garbage")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	tok, err := e.tokens.Issue("a@b.com", models.RoleUser)
	require.NoError(t, err)
	e.clock.Advance(accessTTL + time.Second)
	_, err = e.auth.CheckAuthentication(tok)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestSendOTP(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.auth.SendOTP(ctx, "a@b.com"))
	require.Len(t, e.mailer.sent, 1)
	assert.Equal(t, "a@b.com", e.mailer.sent[0].To)

	code := regexp.MustCompile(`\d{6}`).FindString(e.mailer.sent[0].Text)
	require.Len(t, code, OTPLength)

	ok, err := e.auth.VerifyOTP(ctx, "a@b.com", code)
	require.NoError(t, err)
	assert.True(t, ok)

	e.mailer.err = errors.New("smtp down")
	assert.Error(t, e.auth.SendOTP(ctx, "a@b.com"))
}

func TestUserExists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ok, err := e.auth.UserExists(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.auth.Register(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	ok, err = e.auth.UserExists(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
