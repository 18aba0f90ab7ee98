package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/flagx"
	"github.com/dmitrijs2005/watchlist-auth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names. Durations accept "15m" style strings or integer nanoseconds.
type FileConfig struct {
	HTTPAddr    *string `json:"http_addr" yaml:"http_addr"`
	APIPrefix   *string `json:"api_prefix" yaml:"api_prefix"`
	DatabaseDSN *string `json:"database_dsn" yaml:"database_dsn"`
	Env         *string `json:"env" yaml:"env"`

	AccessTokenSecret *string         `json:"access_token_secret" yaml:"access_token_secret"`
	AccessTokenTTL    *timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	SlidingWindow     *timex.Duration `json:"sliding_window" yaml:"sliding_window"`
	AccessCookieName  *string         `json:"access_cookie_name" yaml:"access_cookie_name"`
	RefreshCookieName *string         `json:"refresh_cookie_name" yaml:"refresh_cookie_name"`

	PrivateKey     *string `json:"private_key" yaml:"private_key"`
	PeerPublicKey  *string `json:"peer_public_key" yaml:"peer_public_key"`
	EnvelopeZeroIV *bool   `json:"envelope_zero_iv" yaml:"envelope_zero_iv"`
	AtRestSecret   *string `json:"at_rest_secret" yaml:"at_rest_secret"`

	OTPTTL           *timex.Duration `json:"otp_ttl" yaml:"otp_ttl"`
	OTPStore         *string         `json:"otp_store" yaml:"otp_store"`
	RedisURL         *string         `json:"redis_url" yaml:"redis_url"`
	OTPSweepInterval *timex.Duration `json:"otp_sweep_interval" yaml:"otp_sweep_interval"`

	Mailer       *string `json:"mailer" yaml:"mailer"`
	MailFrom     *string `json:"mail_from" yaml:"mail_from"`
	SMTPHost     *string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser     *string `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword *string `json:"smtp_password" yaml:"smtp_password"`
	AMQPURL      *string `json:"amqp_url" yaml:"amqp_url"`
	AMQPQueue    *string `json:"amqp_queue" yaml:"amqp_queue"`

	S3Region       *string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey    *string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key" yaml:"s3_secret_key"`
}

// parseFile loads the file named by -c / -config into config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// An unreadable or malformed file panics; a missing flag is a no-op.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	}

	return fc, nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.APIPrefix, fc.APIPrefix)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.Env, fc.Env)

	setString(&c.AccessTokenSecret, fc.AccessTokenSecret)
	setDuration(&c.AccessTokenTTL, fc.AccessTokenTTL)
	setDuration(&c.SlidingWindow, fc.SlidingWindow)
	setString(&c.AccessCookieName, fc.AccessCookieName)
	setString(&c.RefreshCookieName, fc.RefreshCookieName)

	setString(&c.PrivateKey, fc.PrivateKey)
	setString(&c.PeerPublicKey, fc.PeerPublicKey)
	if fc.EnvelopeZeroIV != nil {
		c.EnvelopeZeroIV = *fc.EnvelopeZeroIV
	}
	setString(&c.AtRestSecret, fc.AtRestSecret)

	setDuration(&c.OTPTTL, fc.OTPTTL)
	setString(&c.OTPStore, fc.OTPStore)
	setString(&c.RedisURL, fc.RedisURL)
	setDuration(&c.OTPSweepInterval, fc.OTPSweepInterval)

	setString(&c.Mailer, fc.Mailer)
	setString(&c.MailFrom, fc.MailFrom)
	setString(&c.SMTPHost, fc.SMTPHost)
	if fc.SMTPPort != nil {
		c.SMTPPort = *fc.SMTPPort
	}
	setString(&c.SMTPUser, fc.SMTPUser)
	setString(&c.SMTPPassword, fc.SMTPPassword)
	setString(&c.AMQPURL, fc.AMQPURL)
	setString(&c.AMQPQueue, fc.AMQPQueue)

	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
