// Command keygen writes the two RSA key pairs the envelope needs: one for
// the server and one for its client.
//
//	keygen -o keys -b 2048
//
// produces server_private.pem, server_public.pem, client_private.pem and
// client_public.pem in the output directory.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/filex"
)

func main() {
	out := flag.String("o", "keys", "output directory")
	bits := flag.Int("b", 2048, "RSA key size in bits")
	flag.Parse()

	if err := generate(*out, *bits); err != nil {
		log.Fatalf("%v", err)
	}
}

func generate(dir string, bits int) error {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return err
	}
	for _, name := range []string{"server", "client"} {
		if err := writePair(dir, name, bits); err != nil {
			return fmt.Errorf("%s key pair: %w", name, err)
		}
	}
	return nil
}

func writePair(dir, name string, bits int) error {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return err
	}

	priv, err := cryptox.MarshalPrivateKeyPEM(key)
	if err != nil {
		return err
	}
	pub, err := cryptox.MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, name+"_private.pem"), priv, 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+"_public.pem"), pub, 0o644)
}
