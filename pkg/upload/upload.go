package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/example/foodshop/pkg/config"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrNoFile      = errors.New("no file uploaded")
	ErrInvalidType = errors.New("invalid file type")
	ErrTooLarge    = errors.New("file too large")
	ErrForeignURL  = errors.New("url does not belong to this storage")
	ErrNotFound    = errors.New("image not found")
)

// Storage keeps image bytes and hands out the public URL they are served from.
type Storage interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

type Uploader struct {
	storage Storage
	maxSize int64
	allowed []string
	logger  *zap.Logger
}

func NewUploader(cfg *config.UploadConfig, storage Storage, logger *zap.Logger) *Uploader {
	return &Uploader{
		storage: storage,
		maxSize: cfg.MaxSize,
		allowed: cfg.AllowedTypes,
		logger:  logger.Named("upload"),
	}
}

// Upload validates the image read from r and stores it. declaredType is the client-reported
// content type and may be empty.
func (u *Uploader) Upload(ctx context.Context, filename, declaredType string, r io.Reader) (string, error) {
	if r == nil {
		return "", ErrNoFile
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if int64(len(data)) > u.maxSize {
		return "", ErrTooLarge
	}

	if declared := baseType(declaredType); declared != "" && declared != "application/octet-stream" && !u.isAllowed(declared) {
		return "", ErrInvalidType
	}
	detected := mimetype.Detect(data)
	if !u.isAllowed(detected.String()) {
		return "", ErrInvalidType
	}

	url, err := u.storage.Save(ctx, filename, detected.String(), data)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	u.logger.Info("Image uploaded",
		zap.String("name", filename),
		zap.String("type", detected.String()),
		zap.Int("size", len(data)),
		zap.String("url", url),
	)
	return url, nil
}

func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

func (u *Uploader) Delete(ctx context.Context, url string) error {
	return u.storage.Delete(ctx, url)
}

func (u *Uploader) isAllowed(contentType string) bool {
	for _, t := range u.allowed {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func baseType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// Message is the text returned to the uploader for err.
func Message(err error, maxSize int64) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "No file uploaded"
	case errors.Is(err, ErrInvalidType):
		return "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed."
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("File size too large. Maximum size is %dMB.", maxSize>>20)
	}
	return "Upload failed"
}
