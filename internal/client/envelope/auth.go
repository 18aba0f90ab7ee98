package envelope

import (
	"context"
	"encoding/json"
	"net/http"
)

type userBody struct {
	UserID string `json:"userId"`
}

type otpBody struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

type credentialsBody struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// empty is sent on routes that take no input so the request still travels
// inside an envelope.
var empty = struct{}{}

func (c *Client) call(ctx context.Context, method, path string, body any) (int, *Response, error) {
	var resp Response
	code, err := c.Do(ctx, method, path, body, &resp)
	if err != nil {
		return code, nil, err
	}
	return code, &resp, nil
}

func (c *Client) VerifyEmail(ctx context.Context, userID string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/verify-email", userBody{UserID: userID})
}

func (c *Client) SendOTP(ctx context.Context, userID string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/send-otp", userBody{UserID: userID})
}

func (c *Client) VerifyOTP(ctx context.Context, userID, otp string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/verify-otp", otpBody{UserID: userID, OTP: otp})
}

func (c *Client) Register(ctx context.Context, userID, password string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/register", credentialsBody{UserID: userID, Password: password})
}

func (c *Client) Login(ctx context.Context, userID, password string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/login", credentialsBody{UserID: userID, Password: password})
}

func (c *Client) ChangePasswordAndLogin(ctx context.Context, userID, password string) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/change-password-and-login", credentialsBody{UserID: userID, Password: password})
}

func (c *Client) Logout(ctx context.Context) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/logout", empty)
}

func (c *Client) Refresh(ctx context.Context) (int, *Response, error) {
	return c.call(ctx, http.MethodPost, "/refresh-token", empty)
}

// CheckAuthentication returns the subject the server associates with the
// access cookie.
func (c *Client) CheckAuthentication(ctx context.Context) (int, string, error) {
	code, resp, err := c.call(ctx, http.MethodGet, "/check-authentication", nil)
	if err != nil || !resp.Status {
		return code, "", err
	}
	var subject string
	if err := json.Unmarshal(resp.Util, &subject); err != nil {
		return code, "", err
	}
	return code, subject, nil
}
