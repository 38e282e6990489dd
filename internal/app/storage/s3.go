package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"chatsync/internal/pkg/logx"
)

// s3Storage implements Service against S3-compatible object storage.
type s3Storage struct {
	cfg      ServiceConfig
	uploader *manager.Uploader
}

// newS3Storage initializes the S3 client using a custom configuration that
// supports S3-compatible endpoints.
func newS3Storage(cfg ServiceConfig) (*s3Storage, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Storage{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
	}, nil
}

// Save streams the blob to the bucket and returns its public URL.
func (s *s3Storage) Save(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3BucketName),
		Key:         aws.String(name),
		ContentType: aws.String(contentType),
		Body:        r,
	})
	if err != nil {
		logx.Error(err, "Failed to upload object", "key", name)
		return "", errors.New("failed to upload object")
	}

	return fmt.Sprintf("%s/%s/%s", s.cfg.S3Endpoint, s.cfg.S3BucketName, name), nil
}
