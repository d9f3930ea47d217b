package client

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUploadFailed wraps every storage write failure.
var ErrUploadFailed = errors.New("upload failed")

// StorageClient defines the interface for object storage operations
type StorageClient interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	GetPublicURL(key string) string
}
