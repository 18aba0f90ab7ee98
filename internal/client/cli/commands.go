package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/watchlist-auth/internal/client/envelope"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
)

// Prompt indirections swapped out by tests.
var (
	getSimpleText = readLine
	getPassword   = readSecret
)

var errRejected = errors.New("request rejected")

func (a *App) promptEmail() (string, error) {
	return getSimpleText(a.reader, a.out, "Email")
}

func (a *App) promptCredentials() (string, []byte, error) {
	email, err := a.promptEmail()
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// report prints the server message and turns a non-2xx status into an error.
func (a *App) report(code int, resp *envelope.Response, err error) error {
	if err != nil {
		return err
	}
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s (HTTP %d)", errRejected, resp.Message, code)
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Register creates an account and signs in.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.Register(ctx, email, string(password)))
}

// Login signs in with email and password.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.Login(ctx, email, string(password)))
}

// ChangePassword sets a new password after an OTP challenge.
func (a *App) ChangePassword(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}

	rctx, cancel := a.withTimeout(ctx)
	err = a.report(a.api.SendOTP(rctx, email))
	cancel()
	if err != nil {
		return err
	}

	otp, err := getSimpleText(a.reader, a.out, "Code from the e-mail")
	if err != nil {
		return err
	}
	rctx, cancel = a.withTimeout(ctx)
	err = a.report(a.api.VerifyOTP(rctx, email, otp))
	cancel()
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	rctx, cancel = a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.ChangePasswordAndLogin(rctx, email, string(password)))
}

// Check prints the identity behind the current access cookie.
func (a *App) Check(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	code, subject, err := a.api.CheckAuthentication(ctx)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: not signed in (HTTP %d)", errRejected, code)
	}
	fmt.Fprintln(a.out, "Signed in as", subject)
	return nil
}

// Refresh renews the session cookies.
func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.Refresh(ctx))
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.Logout(ctx))
}

// VerifyEmail reports whether an account exists.
func (a *App) VerifyEmail(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.VerifyEmail(ctx, email))
}

// SendOTP requests a one-time code by e-mail.
func (a *App) SendOTP(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.SendOTP(ctx, email))
}

// VerifyOTP checks a one-time code.
func (a *App) VerifyOTP(ctx context.Context) error {
	email, err := a.promptEmail()
	if err != nil {
		return err
	}
	otp, err := getSimpleText(a.reader, a.out, "Code")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.report(a.api.VerifyOTP(ctx, email, otp))
}
