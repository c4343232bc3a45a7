// Package objstore uploads rendered PNGs to S3-compatible object storage
// (MinIO in the usual deployment).
package objstore

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store wraps an S3 client bound to one bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// NewFromEnv builds a Store from EQRENDER_S3_* variables. Returns (nil, nil)
// when EQRENDER_S3_BUCKET is unset; object storage is optional.
func NewFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("EQRENDER_S3_BUCKET")
	if bucket == "" {
		return nil, nil
	}

	region := os.Getenv("EQRENDER_S3_REGION")
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey := os.Getenv("EQRENDER_S3_ACCESS_KEY"); accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, os.Getenv("EQRENDER_S3_SECRET_KEY"), ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := os.Getenv("EQRENDER_S3_ENDPOINT")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			// MinIO and friends need the custom endpoint and path-style keys.
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: bucket}, nil
}

// Key returns the object key for a job's PNG.
func Key(jobID string) string {
	return "equations/" + jobID + ".png"
}

// PutPNG uploads a rendered PNG for the job.
func (s *Store) PutPNG(ctx context.Context, jobID string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(Key(jobID)),
		Body:        body,
		ContentType: aws.String("image/png"),
	})
	return err
}

// GetPNG fetches a previously uploaded PNG. Caller closes the reader.
func (s *Store) GetPNG(ctx context.Context, jobID string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(jobID)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
