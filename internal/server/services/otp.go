package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/otps"
)

// OTPLength is the number of digits in a code.
const OTPLength = 6

var ten = big.NewInt(10)

// OTPService generates, stores and verifies one-time codes. A code is
// consumed by the first verify attempt that matches it, whatever the outcome.
type OTPService struct {
	repo   otps.Repository
	ttl    time.Duration
	clock  clockx.Clock
	logger logging.Logger
}

func NewOTPService(repo otps.Repository, ttl time.Duration, clock clockx.Clock, logger logging.Logger) *OTPService {
	return &OTPService{repo: repo, ttl: ttl, clock: clock, logger: logger}
}

// TTL is the lifetime of issued codes.
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// Generate returns a fresh code of OTPLength decimal digits.
func (s *OTPService) Generate() (string, error) {
	var b strings.Builder
	b.Grow(OTPLength)
	for range OTPLength {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Issue stores otp as the only outstanding code of userID.
func (s *OTPService) Issue(ctx context.Context, userID, otp string) error {
	o := &models.OTP{UserID: userID, Code: otp, Expires: s.clock.Now().Add(s.ttl)}
	if err := s.repo.Upsert(ctx, o); err != nil {
		return fmt.Errorf("%w: store otp: %v", common.ErrStore, err)
	}
	return nil
}

// Verify reports whether otp is the unexpired code of userID. A code that
// belongs to another user is left untouched; a matching one is deleted
// even when it has expired.
func (s *OTPService) Verify(ctx context.Context, userID, otp string) (bool, error) {
	o, err := s.repo.FindByCode(ctx, otp, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: find otp: %v", common.ErrStore, err)
	}
	if o.UserID != userID {
		return false, nil
	}

	consumed, err := s.repo.Consume(ctx, o.UserID, o.Code)
	if err != nil {
		return false, fmt.Errorf("%w: consume otp: %v", common.ErrStore, err)
	}
	// a concurrent attempt consumed it first
	if !consumed {
		return false, nil
	}

	return !o.Expired(s.clock.Now()), nil
}

// SweepExpired deletes expired codes. Failures are logged and swallowed.
func (s *OTPService) SweepExpired(ctx context.Context) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error(ctx, "otp sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug(ctx, "otp sweep", "deleted", n)
	}
}

// RunSweeper calls SweepExpired every interval until ctx is done. A
// non-positive interval disables the sweeper.
func (s *OTPService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx)
		}
	}
}
