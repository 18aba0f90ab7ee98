package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/watchlist-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     database DSN, or "memory" for in-process stores
//	-s string     access token HMAC secret
//	-t duration   access token TTL (e.g., "15m")
//	-w duration   refresh token sliding window (e.g., "168h")
//	-k string     RSA private key (PEM, path or s3:// URI)
//	-p string     peer RSA public key (PEM, path or s3:// URI)
//	-o string     OTP store: postgres or redis
//	-m string     mailer: log, smtp or amqp
//
// The arguments are first filtered with flagx.FilterArgs so flags that
// belong to other components (e.g. -c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-w", "-k", "-p", "-o", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.DurationVar(&config.AccessTokenTTL, "t", config.AccessTokenTTL, "access token TTL")
	fs.DurationVar(&config.SlidingWindow, "w", config.SlidingWindow, "refresh token sliding window")
	fs.StringVar(&config.PrivateKey, "k", config.PrivateKey, "RSA private key")
	fs.StringVar(&config.PeerPublicKey, "p", config.PeerPublicKey, "peer RSA public key")
	fs.StringVar(&config.OTPStore, "o", config.OTPStore, "OTP store (postgres|redis)")
	fs.StringVar(&config.Mailer, "m", config.Mailer, "mailer (log|smtp|amqp)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
