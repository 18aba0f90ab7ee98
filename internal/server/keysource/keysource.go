// Package keysource resolves RSA key material from inline PEM, a file on
// disk, or an S3 object.
package keysource

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
)

const s3Scheme = "s3://"

// S3Options configures access to the S3-compatible store holding keys.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Loader fetches key material. The S3 client is built lazily on first use.
type Loader struct {
	opts   S3Options
	client objectGetter
}

// NewLoader returns a Loader using opts for s3:// sources.
func NewLoader(opts S3Options) *Loader {
	return &Loader{opts: opts}
}

// Load returns the raw PEM bytes for source:
//
//   - a value containing "-----BEGIN" is treated as inline PEM;
//   - "s3://bucket/key" is fetched from object storage;
//   - anything else is a file path.
func (l *Loader) Load(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.TrimSpace(source) == "":
		return nil, fmt.Errorf("%w: key source is empty", common.ErrKeyExchange)
	case strings.Contains(source, "-----BEGIN"):
		return []byte(source), nil
	case strings.HasPrefix(source, s3Scheme):
		return l.loadS3(ctx, source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", common.ErrKeyExchange, source, err)
		}
		return data, nil
	}
}

// PrivateKey loads and parses an RSA private key.
func (l *Loader) PrivateKey(ctx context.Context, source string) (*rsa.PrivateKey, error) {
	data, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("private key from %s: %w", describe(source), err)
	}
	return key, nil
}

// PublicKey loads and parses an RSA public key.
func (l *Loader) PublicKey(ctx context.Context, source string) (*rsa.PublicKey, error) {
	data, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.ParsePublicKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("public key from %s: %w", describe(source), err)
	}
	return key, nil
}

func (l *Loader) loadS3(ctx context.Context, source string) ([]byte, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(source, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: malformed S3 location %q", common.ErrKeyExchange, source)
	}

	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyExchange, err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrKeyExchange, source, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrKeyExchange, source, err)
	}
	return data, nil
}

func (l *Loader) s3Client(ctx context.Context) (objectGetter, error) {
	if l.client != nil {
		return l.client, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(l.opts.Region)}
	if l.opts.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.opts.AccessKey, l.opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	l.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if l.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return l.client, nil
}

// describe avoids echoing inline key material into error messages.
func describe(source string) string {
	if strings.Contains(source, "-----BEGIN") {
		return "inline PEM"
	}
	return source
}
