// Package storage turns opaque S3 keys into time-limited retrieval URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultExpiry is how long a signed URL stays valid unless the caller
// asks for something else.
const DefaultExpiry = time.Hour

// Config carries the storage credentials and the default bucket.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Presigner mints presigned GET URLs for stored audio artifacts.
// Signing is purely local: no call here reads or mutates the bucket.
type Presigner struct {
	presign *s3.PresignClient
	bucket  string
}

// NewPresigner builds a Presigner from static credentials.
func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Presigner{
		presign: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		bucket:  cfg.Bucket,
	}, nil
}

type options struct {
	expiry time.Duration
	bucket string
}

// Option adjusts a single PresignedURL call.
type Option func(*options)

// WithExpiry overrides the default one-hour validity window.
func WithExpiry(d time.Duration) Option {
	return func(o *options) { o.expiry = d }
}

// WithBucket signs against a bucket other than the configured default.
func WithBucket(bucket string) Option {
	return func(o *options) { o.bucket = bucket }
}

// PresignedURL mints a fresh signed GET URL for the given storage key.
// Every call produces a new signature; nothing is cached and no
// persisted state changes.
func (p *Presigner) PresignedURL(ctx context.Context, key string, opts ...Option) (string, error) {
	o := options{expiry: DefaultExpiry, bucket: p.bucket}
	for _, opt := range opts {
		opt(&o)
	}

	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(o.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}

	return req.URL, nil
}
