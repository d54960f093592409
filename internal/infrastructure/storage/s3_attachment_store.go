// Package storage keeps payment receipts and void evidence in an
// S3-compatible bucket and hands out presigned links to them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPresignExpiry = 15 * time.Minute

// ErrInvalidKey is returned for empty keys or keys escaping the attachment prefixes
var ErrInvalidKey = errors.New("invalid attachment key")

// Attachment key prefixes
const (
	PrefixPayments = "payments"
	PrefixVoids    = "voids"
)

// S3AttachmentStore issues presigned upload and download links.
// It works with AWS S3 and any S3-compatible service (MinIO, RustFS).
type S3AttachmentStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
	logger        *zap.Logger
}

// Option is a functional option for configuring S3AttachmentStore
type Option func(*S3AttachmentStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3AttachmentStore) {
		s.logger = logger
	}
}

// NewS3AttachmentStore creates a store from configuration. An empty
// endpoint targets AWS; static keys are optional there and fall back to
// the default credential chain.
func NewS3AttachmentStore(ctx context.Context, cfg *config.StorageConfig, opts ...Option) (*S3AttachmentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("storage access key id and secret access key must be set together")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3AttachmentStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		expiry:        cfg.PresignExpiry,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.expiry <= 0 {
		store.expiry = defaultPresignExpiry
	}
	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3AttachmentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating attachment bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// NewKey builds a fresh object key under prefix keeping the file extension
func NewKey(prefix, filename string) (string, error) {
	if prefix != PrefixPayments && prefix != PrefixVoids {
		return "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidKey, prefix)
	}
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return fmt.Sprintf("%s/%s/%s%s", prefix, time.Now().UTC().Format("2006/01/02"), uuid.NewString(), ext), nil
}

// ValidateKey rejects keys outside the attachment prefixes
func ValidateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	if !strings.HasPrefix(key, PrefixPayments+"/") && !strings.HasPrefix(key, PrefixVoids+"/") {
		return ErrInvalidKey
	}
	return nil
}

// UploadURL returns a presigned PUT link for key
func (s *S3AttachmentStore) UploadURL(ctx context.Context, key, contentType string) (string, time.Time, error) {
	if err := ValidateKey(key); err != nil {
		return "", time.Time{}, err
	}
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return req.URL, time.Now().Add(s.expiry), nil
}

// DownloadURL returns a presigned GET link for key
func (s *S3AttachmentStore) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	if err := ValidateKey(key); err != nil {
		return "", time.Time{}, err
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(s.expiry), nil
}

// Bucket returns the bucket name
func (s *S3AttachmentStore) Bucket() string {
	return s.bucket
}
