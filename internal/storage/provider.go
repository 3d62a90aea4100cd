// Package storage defines how the final artifact is published. Every
// destination replaces an existing artifact of the same name rather than
// adding a second copy.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ContentTypeJSON is the media type of every artifact this tool produces.
const ContentTypeJSON = "application/json"

// Uploader publishes an artifact to a destination.
type Uploader interface {
	// Upload stores data under name, replacing any existing artifact with
	// that name, and returns a URI for it.
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// UploadFile reads the file at path and uploads it under its base name.
func UploadFile(ctx context.Context, up Uploader, path string) (string, error) {
	// #nosec G304 -- path is an operator supplied artifact location.
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	uri, err := up.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	return uri, nil
}

// NoOpUploader discards artifacts. It is useful for dry runs.
type NoOpUploader struct{}

// Upload for NoOpUploader does nothing and returns an empty URI.
func (NoOpUploader) Upload(_ context.Context, _ string, _ []byte) (string, error) {
	return "", nil
}
