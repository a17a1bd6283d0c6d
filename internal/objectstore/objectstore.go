package objectstore

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/cityboard/listings/internal/config"
)

// ObjectStore uploads binary objects and yields public URLs. Remove is
// best-effort: it deletes what it can and reports the first failure.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, keys ...string) error
}

// GCSStore implements ObjectStore on a Google Cloud Storage bucket.
type GCSStore struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewGCSStore creates a GCS-backed object store.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("connected to object storage",
		zap.String("bucket", cfg.Bucket),
	)

	return &GCSStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		logger:        logger,
	}, nil
}

// Upload writes the object and returns its public URL.
func (s *GCSStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// Remove deletes the given objects, continuing past individual
// failures and returning the first error encountered.
func (s *GCSStore) Remove(ctx context.Context, keys ...string) error {
	var firstErr error
	for _, key := range keys {
		if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
			s.logger.Warn("failed to delete object",
				zap.String("key", key),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete object %s: %w", key, err)
			}
		}
	}
	return firstErr
}

// PublicURL returns the public URL for an object key.
func (s *GCSStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
