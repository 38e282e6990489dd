/*
Package storage provides the blob backend behind the upload endpoint.

The chat engine only ever references uploads by URL and metadata; this package
owns where the bytes actually live.
*/
package storage

import (
	"context"
	"io"
)

// ServiceConfig holds the configuration for the upload storage backends.
type ServiceConfig struct {
	// UploadDir is the local directory used by the default backend. Files in
	// it are served under the /uploads/ path.
	UploadDir string

	// S3 settings select and configure the S3-compatible backend when
	// S3BucketName is non-empty.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service is the public interface for upload blob storage.
type Service interface {
	// Save stores the blob under the given name and returns the URL clients
	// use to fetch it.
	Save(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

// NewService is the factory for Service. It returns the S3 implementation
// when a bucket is configured, the local-disk implementation otherwise.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.S3BucketName != "" {
		return newS3Storage(cfg)
	}
	return newLocalStorage(cfg.UploadDir)
}
