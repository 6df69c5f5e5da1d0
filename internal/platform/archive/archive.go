// Package archive mirrors repository blobs and run evidence to an
// S3-compatible bucket for off-box durability. It is optional: the
// Document Repository's filesystem tree under RepositoryConfig.DataDir
// remains the single source of truth (spec §6.2); the archive is a
// best-effort secondary copy, the same way the teacher's S3Client treats
// resume storage as an optional adjunct to the primary record.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/andreypavlenko/caesub/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client provides S3-compatible blob mirroring.
type Client struct {
	client *s3.Client
	bucket string
}

// New creates a new archive client with custom endpoint support.
func New(cfg config.S3Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive S3 configuration is incomplete")
	}

	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				SigningRegion:     cfg.Region,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	awsConfig := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: customResolver,
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = true // required for S3-compatible storage
	})

	return &Client{client: client, bucket: cfg.Bucket}, nil
}

// PutBlob mirrors a repository blob (document PDF, evidence artifact) under
// key. Failures here never block a write to the authoritative local tree;
// callers log and continue (see modules/repository/service).
func (c *Client) PutBlob(ctx context.Context, key string, contentType string, data []byte) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

// GetBlob retrieves a mirrored blob, used only for disaster-recovery
// tooling — normal reads always go through the local tree.
func (c *Client) GetBlob(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// DeleteBlob removes a mirrored blob.
func (c *Client) DeleteBlob(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("archive: delete %s: %w", key, err)
	}
	return nil
}

// ObjectExists checks if a blob is present in the mirror.
func (c *Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}
