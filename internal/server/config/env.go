package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// Environment variables recognised by parseEnv.
const (
	envHTTPAddr          = "HTTP_ADDR"
	envAPIPrefix         = "API_PREFIX"
	envDatabaseDSN       = "DATABASE_DSN"
	envEnv               = "APP_ENV"
	envAccessSecret      = "ACCESS_TOKEN_SECRET"
	envAccessTTL         = "ACCESS_TOKEN_TTL"
	envSlidingWindow     = "SLIDING_WINDOW"
	envAccessCookieName  = "ACCESS_COOKIE_NAME"
	envRefreshCookieName = "REFRESH_COOKIE_NAME"
	envPrivateKey        = "RSA_PRIVATE_KEY"
	envPeerPublicKey     = "RSA_PEER_PUBLIC_KEY"
	envEnvelopeZeroIV    = "ENVELOPE_ZERO_IV"
	envAtRestSecret      = "AT_REST_SECRET"
	envOTPTTL            = "OTP_TTL"
	envOTPStore          = "OTP_STORE"
	envRedisURL          = "REDIS_URL"
	envOTPSweepInterval  = "OTP_SWEEP_INTERVAL"
	envMailer            = "MAILER"
	envMailFrom          = "MAIL_FROM"
	envSMTPHost          = "SMTP_HOST"
	envSMTPPort          = "SMTP_PORT"
	envSMTPUser          = "SMTP_USER"
	envSMTPPassword      = "SMTP_PASSWORD"
	envAMQPURL           = "AMQP_URL"
	envAMQPQueue         = "AMQP_QUEUE"
	envS3Region          = "S3_REGION"
	envS3BaseEndpoint    = "S3_BASE_ENDPOINT"
	envS3AccessKey       = "S3_ACCESS_KEY"
	envS3SecretKey       = "S3_SECRET_KEY"

	envFilePath       = "ENV_FILE_PATH"
	envSecretID       = "AWS_SECRETS_MANAGER_SECRET_ID"
	envSecretRegion   = "AWS_SECRETS_MANAGER_REGION"
	envSecretOverride = "AWS_SECRETS_MANAGER_OVERWRITE"
)

type secretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newSecretsClient = func(cfg aws.Config) secretGetter {
		return secretsmanager.NewFromConfig(cfg)
	}
)

// parseEnv loads .env (ENV_FILE_PATH or ./.env), then an optional AWS
// Secrets Manager JSON secret, and overlays recognised variables onto config.
// Neither source is required to exist.
func parseEnv(config *Config) {
	loadDotEnv()

	if err := loadSecretsIntoEnv(context.Background()); err != nil {
		slog.Warn("skipping AWS Secrets Manager", "error", err)
	}

	applyEnv(config, os.LookupEnv)
}

func loadDotEnv() {
	path := os.Getenv(envFilePath)
	if path == "" {
		path = ".env"
	}
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(path)
}

// loadSecretsIntoEnv copies the key/value pairs of a JSON secret into the
// process environment. Existing variables win unless
// AWS_SECRETS_MANAGER_OVERWRITE=true.
func loadSecretsIntoEnv(ctx context.Context) error {
	secretID := os.Getenv(envSecretID)
	if secretID == "" {
		return nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region := os.Getenv(envSecretRegion); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return err
	}

	out, err := newSecretsClient(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return fmt.Errorf("fetch secret %s: %w", secretID, err)
	}

	var payload string
	switch {
	case out.SecretString != nil:
		payload = *out.SecretString
	case len(out.SecretBinary) > 0:
		payload = string(out.SecretBinary)
	default:
		return fmt.Errorf("secret %s has no payload", secretID)
	}

	var kv map[string]any
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return fmt.Errorf("parse secret %s: %w", secretID, err)
	}

	overwrite := strings.EqualFold(os.Getenv(envSecretOverride), "true")
	for k, v := range kv {
		if _, set := os.LookupEnv(k); set && !overwrite {
			continue
		}
		if err := os.Setenv(k, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("set %s from secret: %w", k, err)
		}
	}

	return nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) {
	str := func(dst *string, key string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(fmt.Errorf("%s: %w", key, err))
			}
			*dst = d
		}
	}

	str(&c.HTTPAddr, envHTTPAddr)
	str(&c.APIPrefix, envAPIPrefix)
	str(&c.DatabaseDSN, envDatabaseDSN)
	str(&c.Env, envEnv)

	str(&c.AccessTokenSecret, envAccessSecret)
	dur(&c.AccessTokenTTL, envAccessTTL)
	dur(&c.SlidingWindow, envSlidingWindow)
	str(&c.AccessCookieName, envAccessCookieName)
	str(&c.RefreshCookieName, envRefreshCookieName)

	str(&c.PrivateKey, envPrivateKey)
	str(&c.PeerPublicKey, envPeerPublicKey)
	if v, ok := lookup(envEnvelopeZeroIV); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%s: %w", envEnvelopeZeroIV, err))
		}
		c.EnvelopeZeroIV = b
	}
	str(&c.AtRestSecret, envAtRestSecret)

	dur(&c.OTPTTL, envOTPTTL)
	str(&c.OTPStore, envOTPStore)
	str(&c.RedisURL, envRedisURL)
	dur(&c.OTPSweepInterval, envOTPSweepInterval)

	str(&c.Mailer, envMailer)
	str(&c.MailFrom, envMailFrom)
	str(&c.SMTPHost, envSMTPHost)
	if v, ok := lookup(envSMTPPort); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s: %w", envSMTPPort, err))
		}
		c.SMTPPort = n
	}
	str(&c.SMTPUser, envSMTPUser)
	str(&c.SMTPPassword, envSMTPPassword)
	str(&c.AMQPURL, envAMQPURL)
	str(&c.AMQPQueue, envAMQPQueue)

	str(&c.S3Region, envS3Region)
	str(&c.S3BaseEndpoint, envS3BaseEndpoint)
	str(&c.S3AccessKey, envS3AccessKey)
	str(&c.S3SecretKey, envS3SecretKey)
}
