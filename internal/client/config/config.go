package config

import "time"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL       string
	PrivateKey      string
	ServerPublicKey string
	RequestTimeout  time.Duration
	EnvelopeZeroIV  bool
}

// Flags understood by the CLI config. Everything else on the command line
// is left for the command itself.
var knownFlags = []string{"-a", "-k", "-p", "-t", "-c", "-config"}

// KnownFlags returns the flags consumed by LoadConfig.
func KnownFlags() []string {
	return append([]string(nil), knownFlags...)
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080/api/auth"
	c.PrivateKey = "keys/client_private.pem"
	c.ServerPublicKey = "keys/server_public.pem"
	c.RequestTimeout = 10 * time.Second
	c.EnvelopeZeroIV = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
