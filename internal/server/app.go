// Package server wires the auth service together: configuration, key
// material, stores, the mailer, the services and the HTTP server, and runs
// them until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/auth"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/config"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/keysource"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/mail"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/rest"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *rest.Server
	otp    *services.OTPService

	closers []io.Closer
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(os.Stdout, c.Production())
	if c.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config
	clock := clockx.Real()

	keys, err := app.loadKeys(ctx)
	if err != nil {
		return err
	}
	mode := cryptox.RandomIV
	if c.EnvelopeZeroIV {
		mode = cryptox.ZeroIV
		app.logger.Warn(ctx, "envelope uses a fixed zero IV")
	}
	envelope := cryptox.NewEnvelope(mode)

	cipher, err := cryptox.NewFieldCipher(c.AtRestSecret)
	if err != nil {
		return fmt.Errorf("field cipher: %w", err)
	}

	var (
		db    *sql.DB
		tx    dbx.Transactor
		repos repomanager.RepositoryManager
		otpDB otps.Repository
		ping  rest.Pinger
	)
	if c.InMemory() {
		store := memory.NewStore()
		repos = repomanager.NewMemoryRepositoryManager(store)
		tx = dbx.NoTx{}
		otpDB = store.OTPs()
		app.logger.Warn(ctx, "using in-memory stores, state is lost on exit")
	} else {
		if db, err = app.openDB(ctx); err != nil {
			return err
		}
		repos = repomanager.NewPostgresRepositoryManager()
		if err := repos.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		tx = dbx.NewSQLTransactor(db, nil)
		otpDB = repos.OTPs(db)
		ping = db
	}

	if c.OTPStore == config.OTPStoreRedis {
		if otpDB, err = app.openRedis(ctx, clock); err != nil {
			return err
		}
	}

	mailer, err := app.newMailer()
	if err != nil {
		return err
	}

	tokens := auth.NewAccessTokens(c.AccessTokenSecret, c.AccessTokenTTL, clock)
	var base dbx.DBTX
	if db != nil {
		base = db
	}
	refresh := services.NewRefreshTokenService(base, repos, cipher, c.SlidingWindow, clock)
	app.otp = services.NewOTPService(otpDB, c.OTPTTL, clock, app.logger)

	authService, err := services.NewAuthService(services.AuthDeps{
		DB:      base,
		Tx:      tx,
		Repos:   repos,
		Refresh: refresh,
		OTP:     app.otp,
		Tokens:  tokens,
		Cipher:  cipher,
		Mailer:  mailer,
		Clock:   clock,
		Logger:  app.logger,
	})
	if err != nil {
		return err
	}

	router := rest.NewRouter(rest.RouterDeps{
		Prefix:   c.APIPrefix,
		Auth:     authService,
		Tokens:   tokens,
		Keys:     keys,
		Envelope: envelope,
		Cookies: rest.CookieConfig{
			AccessName:  c.AccessCookieName,
			RefreshName: c.RefreshCookieName,
			Secure:      c.Production(),
		},
		DB:     ping,
		Logger: app.logger,
	})
	app.server = rest.NewServer(c.HTTPAddr, router, app.logger)

	return nil
}

func (app *App) loadKeys(ctx context.Context) (*cryptox.KeyExchange, error) {
	c := app.config
	loader := keysource.NewLoader(keysource.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})

	private, err := loader.PrivateKey(ctx, c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	peer, err := loader.PublicKey(ctx, c.PeerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("peer public key: %w", err)
	}
	return cryptox.NewKeyExchange(private, peer)
}

func (app *App) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sqlOpen("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func (app *App) openRedis(ctx context.Context, clock clockx.Clock) (otps.Repository, error) {
	opts, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	app.closers = append(app.closers, client)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return otps.NewRedisRepository(client, clock), nil
}

func (app *App) newMailer() (mail.Mailer, error) {
	c := app.config
	switch c.Mailer {
	case config.MailerSMTP:
		return mail.NewSMTPMailer(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom), nil
	case config.MailerAMQP:
		m, conn, err := mail.DialAMQP(c.AMQPURL, c.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		app.closers = append(app.closers, conn)
		return m, nil
	default:
		return mail.NewLogMailer(app.logger), nil
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.otp.RunSweeper(ctx, app.config.OTPSweepInterval)
	}()

	wg.Wait()
	app.close()
}
