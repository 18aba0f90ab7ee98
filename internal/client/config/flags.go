package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: os.Args is filtered with flagx.FilterArgs first so the command and
// its arguments do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-p", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the auth API")
	fs.StringVar(&cfg.PrivateKey, "k", cfg.PrivateKey, "client private key (PEM file)")
	fs.StringVar(&cfg.ServerPublicKey, "p", cfg.ServerPublicKey, "server public key (PEM file)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
