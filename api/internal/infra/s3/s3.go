package s3

import (
	"bytes"
	"context"
	"fmt"
	"mashub/api/internal/config"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client writes dead-letter documents to an S3 compatible bucket.
type Client struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
}

func Init(ctx context.Context, config *config.Config) (*Client, error) {
	cfg := config.Archive
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{s3Client: s3Client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) Key(name string) string {
	return path.Join(c.prefix, name)
}

func (c *Client) PutJSON(ctx context.Context, name string, body []byte) (string, error) {
	key := c.Key(name)
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", c.bucket, key, err)
	}
	return key, nil
}
