package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3Cache. Endpoint is optional for AWS and required
// for R2 or MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// expiresMeta is the object metadata key holding the expiry as Unix seconds.
const expiresMeta = "cardcrop-expires"

// S3Cache stores entries as objects. Expiry is recorded in object metadata
// and checked on read; configure a bucket lifecycle rule to reclaim space.
type S3Cache struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Cache builds the S3 client and checks that the bucket is reachable.
func NewS3Cache(ctx context.Context, cfg S3Config) (*S3Cache, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	c := &S3Cache{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
	err = RetryWithBackoff(ctx, func() error {
		_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)})
		return classifyS3(err)
	})
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	return c, nil
}

func (c *S3Cache) key(key string) string { return c.prefix + key }

func (c *S3Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var out *s3.GetObjectOutput
	err := RetryWithBackoff(ctx, func() error {
		var err error
		out, err = c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(c.key(key)),
		})
		return classifyS3(err)
	})
	if isS3NotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer out.Body.Close()

	if exp, ok := out.Metadata[expiresMeta]; ok {
		if secs, err := strconv.ParseInt(exp, 10, 64); err == nil && time.Now().After(time.Unix(secs, 0)) {
			_ = c.Delete(ctx, key)
			return nil, false, nil
		}
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read object: %w", err)
	}
	return data, true, nil
}

func (c *S3Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	meta := map[string]string{}
	if ttl > 0 {
		meta[expiresMeta] = strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	}
	return RetryWithBackoff(ctx, func() error {
		_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(c.bucket),
			Key:           aws.String(c.key(key)),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String("application/octet-stream"),
			Metadata:      meta,
		})
		return classifyS3(err)
	})
}

func (c *S3Cache) Delete(ctx context.Context, key string) error {
	err := RetryWithBackoff(ctx, func() error {
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(c.key(key)),
		})
		return classifyS3(err)
	})
	if isS3NotFound(err) {
		return nil
	}
	return err
}

func (c *S3Cache) Close() error { return nil }

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

// classifyS3 marks everything except missing objects and buckets as
// retryable; the SDK has already retried throttling internally.
func classifyS3(err error) error {
	if err == nil || isS3NotFound(err) {
		return err
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}

var _ Cache = (*S3Cache)(nil)
