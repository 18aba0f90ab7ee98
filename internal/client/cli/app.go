package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/watchlist-auth/internal/client/config"
	"github.com/dmitrijs2005/watchlist-auth/internal/client/envelope"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
)

// authAPI is the part of envelope.Client the commands use.
type authAPI interface {
	VerifyEmail(ctx context.Context, userID string) (int, *envelope.Response, error)
	SendOTP(ctx context.Context, userID string) (int, *envelope.Response, error)
	VerifyOTP(ctx context.Context, userID, otp string) (int, *envelope.Response, error)
	Register(ctx context.Context, userID, password string) (int, *envelope.Response, error)
	Login(ctx context.Context, userID, password string) (int, *envelope.Response, error)
	ChangePasswordAndLogin(ctx context.Context, userID, password string) (int, *envelope.Response, error)
	Logout(ctx context.Context) (int, *envelope.Response, error)
	Refresh(ctx context.Context) (int, *envelope.Response, error)
	CheckAuthentication(ctx context.Context) (int, string, error)
}

type App struct {
	config *config.Config
	api    authAPI
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	keys, err := loadKeys(c.PrivateKey, c.ServerPublicKey)
	if err != nil {
		return nil, err
	}

	mode := cryptox.RandomIV
	if c.EnvelopeZeroIV {
		mode = cryptox.ZeroIV
	}

	api, err := envelope.New(c.ServerURL, keys, cryptox.NewEnvelope(mode))
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func loadKeys(privatePath, serverPublicPath string) (*cryptox.KeyExchange, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	private, err := cryptox.ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, err
	}

	pubPEM, err := os.ReadFile(serverPublicPath)
	if err != nil {
		return nil, fmt.Errorf("read server public key: %w", err)
	}
	peer, err := cryptox.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return nil, err
	}

	return cryptox.NewKeyExchange(private, peer)
}

// Run executes args as a single command, or starts the REPL when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Welcome to the watchlist auth CLI (type 'help' for commands)")
		runREPL(ctx, a)
		return nil
	}
	return a.exec(ctx, args[0])
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
