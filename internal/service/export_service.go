package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/client"
	"github.com/Corner-Boxing/corner-backend/internal/model"
)

// ExportService encodes rendered classes and uploads them to object storage
type ExportService struct {
	storage    client.StorageClient
	codec      *audio.Codec
	prefix     string
	presignTTL time.Duration
}

// NewExportService creates a new export service. A positive presignTTL
// returns presigned URLs instead of public ones.
func NewExportService(storage client.StorageClient, codec *audio.Codec, prefix string, presignTTL time.Duration) *ExportService {
	return &ExportService{
		storage:    storage,
		codec:      codec,
		prefix:     prefix,
		presignTTL: presignTTL,
	}
}

// ObjectKey names the uploaded class file,
// e.g. generated/class_beginner_60min_normal_1700000000.mp3.
func ObjectKey(prefix string, meta model.ExportMeta, ext string) string {
	name := fmt.Sprintf("class_%s_%dmin_%s_%d%s",
		meta.Difficulty, meta.LengthMin, meta.Pace, meta.Timestamp.Unix(), ext)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ExportAndUpload encodes track to a temp file, uploads it and returns the
// file URL. Upload errors match client.ErrUploadFailed.
func (s *ExportService) ExportAndUpload(ctx context.Context, track *audio.Track, meta model.ExportMeta) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: storage not configured", client.ErrUploadFailed)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	tmp, err := os.CreateTemp("", "class-*"+s.codec.Extension())
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := s.codec.Encode(ctx, track, tmp); err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	key := ObjectKey(s.prefix, meta, s.codec.Extension())
	url, err := s.storage.Upload(ctx, key, tmp, s.codec.ContentType())
	if err != nil {
		return "", err
	}

	if s.presignTTL > 0 {
		signed, err := s.storage.GetSignedURL(ctx, key, s.presignTTL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", client.ErrUploadFailed, err)
		}
		return signed, nil
	}
	return url, nil
}
