// Package config loads runtime configuration for the watchlist auth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth API, including the route prefix
//	-k string   path to the client RSA private key (PEM)
//	-p string   path to the server RSA public key (PEM)
//	-t int      request timeout (seconds)
//
// # JSON schema
//
// The legacy zero-IV envelope can only be selected in the file.
//
//	{
//	  "server_url": "http://127.0.0.1:8080/api/auth",
//	  "private_key": "keys/client_private.pem",
//	  "server_public_key": "keys/server_public.pem",
//	  "request_timeout": "10s",
//	  "envelope_zero_iv": false
//	}
package config
