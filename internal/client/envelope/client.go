package envelope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/google/uuid"
)

var ErrUnavailable = errors.New("server unavailable")

// Response mirrors the server's response body.
type Response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message,omitempty"`
	Util    json.RawMessage `json:"util,omitempty"`
}

type sealedBody struct {
	EncryptedData string `json:"encryptedData"`
}

type Client struct {
	base     *url.URL
	http     *http.Client
	keys     *cryptox.KeyExchange
	envelope *cryptox.Envelope
}

// New returns a client for the API rooted at baseURL (including the route
// prefix). keys holds the client private key and the server public key.
func New(baseURL string, keys *cryptox.KeyExchange, env *cryptox.Envelope) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:     base,
		http:     &http.Client{Jar: jar},
		keys:     keys,
		envelope: env,
	}, nil
}

// Jar exposes the session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// BaseURL is the URL the client was created with.
func (c *Client) BaseURL() *url.URL {
	return c.base
}

// Cookie returns the value of the named cookie held for the API, if any.
func (c *Client) Cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// SetCookie stores a cookie for the API host.
func (c *Client) SetCookie(name, value string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// Do sends body (encrypted when not nil) to path and decodes the response
// into out. It returns the HTTP status.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (int, error) {
	var (
		reader  io.Reader
		wrapped string
	)
	if body != nil {
		keyHex, err := cryptox.GenerateKeyHex()
		if err != nil {
			return 0, err
		}
		sealed, err := c.envelope.Encrypt(body, keyHex)
		if err != nil {
			return 0, err
		}
		if wrapped, err = c.keys.WrapKey(keyHex); err != nil {
			return 0, err
		}
		raw, err := json.Marshal(sealedBody{EncryptedData: sealed})
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(common.EncryptedKeyHeader, wrapped)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if err := c.decode(resp.Header.Get(common.EncryptedKeyHeader), raw, out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

func (c *Client) decode(wrapped string, raw []byte, out any) error {
	if wrapped == "" {
		if out == nil || len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, out)
	}

	var sb sealedBody
	if err := json.Unmarshal(raw, &sb); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	keyHex, err := c.keys.UnwrapKey(wrapped)
	if err != nil {
		return err
	}
	plain, err := c.envelope.DecryptBytes(sb.EncryptedData, keyHex)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(plain, out)
}
