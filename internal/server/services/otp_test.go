package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestOTP_Generate(t *testing.T) {
	e := newEnv(t)

	seen := make(map[byte]bool)
	for range 200 {
		code, err := e.otp.Generate()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
		for i := range code {
			seen[code[i]] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestOTP_SingleUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "123456"))

	ok, err := e.otp.Verify(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.otp.Verify(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTP_CrossUserRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "123456"))

	ok, err := e.otp.Verify(ctx, "c@d.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	// the owner's code survives someone else's attempt
	ok, err = e.otp.Verify(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTP_ExpiryConsumes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "123456"))
	e.clock.Advance(otpTTL + time.Millisecond)

	ok, err := e.otp.Verify(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.store.OTPs().FindByCode(ctx, "123456", "a@b.com")
	assert.Error(t, err)
}

func TestOTP_WrongCodeKeepsRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "123456"))

	ok, err := e.otp.Verify(ctx, "a@b.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.otp.Verify(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTP_ReissueReplaces(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "111111"))
	require.NoError(t, e.otp.Issue(ctx, "a@b.com", "222222"))

	ok, err := e.otp.Verify(ctx, "a@b.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.otp.Verify(ctx, "a@b.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTP_SweepExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Issue(ctx, "old@b.com", "111111"))
	e.clock.Advance(otpTTL + time.Second)
	require.NoError(t, e.otp.Issue(ctx, "new@b.com", "222222"))

	e.otp.SweepExpired(ctx)

	_, err := e.store.OTPs().FindByCode(ctx, "111111", "old@b.com")
	assert.Error(t, err)
	_, err = e.store.OTPs().FindByCode(ctx, "222222", "new@b.com")
	assert.NoError(t, err)
}

type countingOTPs struct {
	sweeps chan struct{}
}

func (c *countingOTPs) Upsert(context.Context, *models.OTP) error { return nil }
func (c *countingOTPs) FindByCode(context.Context, string, string) (*models.OTP, error) {
	return nil, nil
}
func (c *countingOTPs) Consume(context.Context, string, string) (bool, error) { return false, nil }
func (c *countingOTPs) DeleteExpired(context.Context, time.Time) (int64, error) {
	select {
	case c.sweeps <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestOTP_RunSweeperStopsWithContext(t *testing.T) {
	repo := &countingOTPs{sweeps: make(chan struct{}, 16)}
	svc := NewOTPService(repo, otpTTL, clockx.Real(), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-repo.sweeps:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
