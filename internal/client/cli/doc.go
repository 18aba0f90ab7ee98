// Package cli provides the interactive watchlist auth command-line client.
//
// It loads the client's key pair, opens an encrypted session against the
// auth API and runs either a single command or a REPL. Cookies set by the
// server live for the duration of the process.
//
// Commands: register, login, check, refresh, logout, verify-email,
// send-otp, verify-otp, change-password, exit.
package cli
