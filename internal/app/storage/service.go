package storage

import (
	"context"
	"io"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3PublicBaseURL   string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ImageHost defines the public interface for avatar image storage.
type ImageHost interface {
	// Upload stores an image under the given key and returns its public URL.
	Upload(ctx context.Context, key string, mimeType string, body io.Reader) (string, error)

	// Delete removes the image specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewImageHost is the factory function for ImageHost.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewImageHost(cfg ServiceConfig) (ImageHost, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(cfg)
}
