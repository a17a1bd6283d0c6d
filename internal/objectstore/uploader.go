package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/config"
	"github.com/cityboard/listings/internal/metrics"
)

// Validation errors surfaced before any byte is uploaded.
var (
	ErrTooManyImages = errors.New("too many images")
	ErrImageTooLarge = errors.New("image exceeds maximum size")
	ErrNotAnImage    = errors.New("file is not an image")
)

// File is one user-selected image to upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Uploader performs strictly sequential multi-image uploads. The whole
// batch either succeeds or leaves nothing behind: on any failure the
// already-uploaded objects are deleted best-effort before the error is
// returned.
type Uploader struct {
	store   ObjectStore
	cfg     config.UploadConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewUploader(store ObjectStore, cfg config.UploadConfig, logger *zap.Logger, m *metrics.Metrics) *Uploader {
	return &Uploader{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// ValidateBatch checks count, size and MIME constraints without
// touching storage.
func (u *Uploader) ValidateBatch(files []File) error {
	if len(files) > u.cfg.MaxImages {
		return fmt.Errorf("%w: %d files, limit %d", ErrTooManyImages, len(files), u.cfg.MaxImages)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return fmt.Errorf("%w: %s has type %s", ErrNotAnImage, f.Name, f.ContentType)
		}
		if f.Size > u.cfg.MaxImageSize {
			return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrImageTooLarge, f.Name, f.Size, u.cfg.MaxImageSize)
		}
	}
	return nil
}

// UploadAll uploads the files one at a time under the given key prefix
// and returns the public URLs in input order.
func (u *Uploader) UploadAll(ctx context.Context, prefix string, files []File) ([]string, error) {
	if err := u.ValidateBatch(files); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(files))
	keys := make([]string, 0, len(files))

	for _, f := range files {
		key := prefix + "/" + uuid.NewString() + path.Ext(f.Name)
		url, err := u.store.Upload(ctx, key, f.ContentType, f.Reader)
		if err != nil {
			if u.metrics != nil {
				u.metrics.RecordImageUpload("error")
			}
			u.rollback(ctx, keys)
			return nil, fmt.Errorf("failed to upload %s: %w", f.Name, err)
		}
		if u.metrics != nil {
			u.metrics.RecordImageUpload("ok")
		}
		urls = append(urls, url)
		keys = append(keys, key)
	}

	return urls, nil
}

// rollback deletes the objects uploaded so far.
func (u *Uploader) rollback(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if u.metrics != nil {
		u.metrics.RecordUploadRollback()
	}
	if err := u.store.Remove(ctx, keys...); err != nil {
		u.logger.Warn("upload rollback incomplete",
			zap.Int("objects", len(keys)),
			zap.Error(err),
		)
	}
}
