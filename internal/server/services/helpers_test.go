package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/auth"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/mail"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const (
	window    = 24 * time.Hour
	accessTTL = 15 * time.Minute
	otpTTL    = 5 * time.Minute
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type env struct {
	clock   *clockx.Fake
	store   *memory.Store
	cipher  *cryptox.FieldCipher
	tokens  *auth.AccessTokens
	refresh *RefreshTokenService
	otp     *OTPService
	auth    *AuthService
	mailer  *recordingMailer
}

func newEnv(t *testing.T) *env {
	t.Helper()

	clock := clockx.NewFake(epoch)
	store := memory.NewStore()
	repos := repomanager.NewMemoryRepositoryManager(store)

	cipher, err := cryptox.NewFieldCipher("test-secret")
	require.NoError(t, err)

	tokens := auth.NewAccessTokens("jwt-secret", accessTTL, clock)
	refresh := NewRefreshTokenService(nil, repos, cipher, window, clock)
	otp := NewOTPService(store.OTPs(), otpTTL, clock, logging.Nop())
	mailer := &recordingMailer{}

	svc, err := NewAuthService(AuthDeps{
		Tx:      dbx.NoTx{},
		Repos:   repos,
		Refresh: refresh,
		OTP:     otp,
		Tokens:  tokens,
		Cipher:  cipher,
		Mailer:  mailer,
		Clock:   clock,
		Logger:  logging.Nop(),
	})
	require.NoError(t, err)

	return &env{
		clock:   clock,
		store:   store,
		cipher:  cipher,
		tokens:  tokens,
		refresh: refresh,
		otp:     otp,
		auth:    svc,
		mailer:  mailer,
	}
}
