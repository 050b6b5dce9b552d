package storage

import (
	"context"
	"time"
)

// StorageService defines the interface for image storage operations. Uploads
// return a permanent identifier; download URLs are derived from it.
type StorageService interface {
	UploadFile(ctx context.Context, localFilePath, destFolder string) (string, error)
	DeleteFile(ctx context.Context, publicID string) error
	GetDownloadURL(ctx context.Context, publicID string, expires time.Duration) (string, error)
}
