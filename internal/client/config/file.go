package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/flagx"
	"github.com/dmitrijs2005/watchlist-auth/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the defaults in place.
type JSONConfig struct {
	ServerURL       *string         `json:"server_url"`
	PrivateKey      *string         `json:"private_key"`
	ServerPublicKey *string         `json:"server_public_key"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	EnvelopeZeroIV  *bool           `json:"envelope_zero_iv"`
}

// parseJSON overlays cfg with the file named by -c / -config.
// Panics on read or unmarshal errors.
func parseJSON(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.PrivateKey != nil {
		cfg.PrivateKey = *jc.PrivateKey
	}
	if jc.ServerPublicKey != nil {
		cfg.ServerPublicKey = *jc.ServerPublicKey
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.EnvelopeZeroIV != nil {
		cfg.EnvelopeZeroIV = *jc.EnvelopeZeroIV
	}
}
