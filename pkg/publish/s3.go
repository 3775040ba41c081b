package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/ngohuy/hlspacker/pkg/logger"
)

// S3Config configures an S3Publisher against an S3-compatible bucket.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultS3Config returns conservative retry defaults.
func DefaultS3Config() S3Config {
	return S3Config{MaxRetries: 3, RetryDelay: 2 * time.Second}
}

// S3Publisher uploads finished segment and playlist bytes to an
// S3-compatible bucket. Grounded on the teacher's object-storage backend,
// trimmed to the write-only path a publish sink actually needs.
type S3Publisher struct {
	client *s3.Client
	cfg    S3Config
	logger logger.Logger
}

// NewS3Publisher builds an S3Publisher from cfg, resolving credentials via
// the static pair when present or the default AWS credential chain
// otherwise.
func NewS3Publisher(cfg S3Config, log logger.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("publish: S3Config.Bucket is required")
	}
	if log == nil {
		log = logger.NewDefaultLogger(logger.InfoLevel, "text")
	}

	var awsConfig aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(context.Background(), config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("publish: failed to load AWS config: %w", err)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) { o.UsePathStyle = true },
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}

	return &S3Publisher{
		client: s3.NewFromConfig(awsConfig, opts...),
		cfg:    cfg,
		logger: log,
	}, nil
}

// Publish uploads data under key, using a random UUID as the whole key when
// key is empty so concurrent publishers never collide on an object name.
func (p *S3Publisher) Publish(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		key = uuid.NewString()
	}
	key = strings.TrimPrefix(key, "/")

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying publish upload", logger.String("key", key), logger.Int("attempt", attempt))
			time.Sleep(p.cfg.RetryDelay)
		}

		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err == nil {
			p.logger.Info("publish upload completed", logger.String("bucket", p.cfg.Bucket), logger.String("key", key), logger.Int("size", len(data)))
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return fmt.Errorf("publish: S3 upload failed after retries: %w", lastErr)
}

// Close is a no-op; the underlying HTTP client owns no resources that must
// be released explicitly.
func (p *S3Publisher) Close() error { return nil }

func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId":
			return false
		}
	}
	return true
}
