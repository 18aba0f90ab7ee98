package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"testbin"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/api/auth", c.ServerURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.False(t, c.EnvelopeZeroIV)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_url": "http://file:1/api/auth",
		"private_key": "file.pem",
		"request_timeout": "30s",
		"envelope_zero_iv": true
	}`), 0o600))

	withArgs(t, "-c", path, "-a", "http://flag:2/api/auth", "login", "a@b.com")

	got := LoadConfig()
	want := &Config{
		ServerURL:       "http://flag:2/api/auth",
		PrivateKey:      "file.pem",
		ServerPublicKey: "keys/server_public.pem",
		RequestTimeout:  30 * time.Second,
		EnvelopeZeroIV:  true,
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestParseFlags(t *testing.T) {
	withArgs(t, "-k", "my.pem", "-p", "srv.pem", "-t", "3", "check")

	var c Config
	c.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(&c) })

	assert.Equal(t, "my.pem", c.PrivateKey)
	assert.Equal(t, "srv.pem", c.ServerPublicKey)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
}

func TestParseFlags_BadTimeout(t *testing.T) {
	withArgs(t, "-t", "abc")

	var c Config
	assert.Panics(t, func() { parseFlags(&c) })
}

func TestParseJSON_Errors(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "missing.json"))
	assert.Panics(t, func() { parseJSON(&Config{}) })

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	withArgs(t, "-c", bad)
	assert.Panics(t, func() { parseJSON(&Config{}) })
}

func TestKnownFlags(t *testing.T) {
	flags := KnownFlags()
	assert.Contains(t, flags, "-a")
	assert.Contains(t, flags, "-config")
}
