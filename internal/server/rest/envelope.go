package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidEnvelope = "invalid encrypted request"
	msgEncryptFailed   = "failed to encrypt response"
)

// bufferedWriter holds the handler's status and body so the envelope can be
// applied after the handler returns.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	return w.buf.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.buf.Len() > 0
}

// Envelope decrypts inbound bodies sent as {encryptedData} with an
// x-encrypted-key header and encrypts every response under a fresh key
// wrapped for the peer.
//
// A request carrying neither artifact passes through as plaintext; one
// carrying only one of them is rejected.
func Envelope(keys *cryptox.KeyExchange, env *cryptox.Envelope, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if err := openRequest(c, keys, env); err != nil {
			logger.Debug(ctx, "rejecting encrypted request", "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{Status: false, Message: msgInvalidEnvelope})
			return
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = bw
		// A panicking handler must leave the real writer in place for Recovery.
		defer func() { c.Writer = bw.ResponseWriter }()
		c.Next()
		c.Writer = bw.ResponseWriter

		sealed, wrapped, err := sealResponse(bw.buf.Bytes(), keys, env)
		if err != nil {
			logger.Error(ctx, "encrypting response", "error", err)
			c.Writer.Header().Del(common.EncryptedKeyHeader)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgEncryptFailed})
			return
		}

		c.Header(common.EncryptedKeyHeader, wrapped)
		c.JSON(bw.status, gin.H{common.EncryptedDataField: sealed})
	}
}

func openRequest(c *gin.Context, keys *cryptox.KeyExchange, env *cryptox.Envelope) error {
	var body []byte
	if c.Request.Body != nil {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			return err
		}
		_ = c.Request.Body.Close()
	}

	data, hasData, err := encryptedField(body)
	if err != nil {
		return err
	}
	wrapped := c.GetHeader(common.EncryptedKeyHeader)

	switch {
	case !hasData && wrapped == "":
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		return nil
	case !hasData:
		return common.ErrDecryption
	case wrapped == "":
		return common.ErrKeyExchange
	}

	keyHex, err := keys.UnwrapKey(wrapped)
	if err != nil {
		return err
	}
	plain, err := env.DecryptBytes(data, keyHex)
	if err != nil {
		return err
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(plain))
	c.Request.ContentLength = int64(len(plain))
	c.Request.Header.Set("Content-Type", "application/json")
	return nil
}

// encryptedField extracts the ciphertext field from a JSON object body.
// Bodies that are not JSON objects carry no ciphertext.
func encryptedField(body []byte) (string, bool, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false, nil
	}
	raw, ok := fields[common.EncryptedDataField]
	if !ok {
		return "", false, nil
	}

	var data string
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", false, common.ErrDecryption
	}
	return data, true, nil
}

func sealResponse(payload []byte, keys *cryptox.KeyExchange, env *cryptox.Envelope) (string, string, error) {
	if len(payload) == 0 {
		payload = []byte("null")
	}

	keyHex, err := cryptox.GenerateKeyHex()
	if err != nil {
		return "", "", err
	}
	sealed, err := env.EncryptBytes(payload, keyHex)
	if err != nil {
		return "", "", err
	}
	wrapped, err := keys.WrapKey(keyHex)
	if err != nil {
		return "", "", err
	}
	return sealed, wrapped, nil
}
