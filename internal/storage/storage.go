// Package storage provides file storage for the watermarking service: a
// local temp area backing the HTTP upload/download/cleanup endpoints and an
// optional S3 backend for publishing finished outputs.
package storage

import (
	"context"
	"io"
)

// Storage is the file port. SaveTemp, LoadTemp and CleanupTemp back the HTTP
// file endpoints (staging sources and overlays, serving finished outputs on
// deployments without a bucket); UploadToS3 publishes finished outputs.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
