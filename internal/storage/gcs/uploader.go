// Package gcs provides an Uploader backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	storagepkg "github.com/JakeFAU/jobpost-scraper/internal/storage"
)

// Config captures the parameters required to publish to GCS.
type Config struct {
	Bucket string
	// Prefix is prepended to object names, like a folder.
	Prefix string
	// ShareWith, when set, is granted ownership of the uploaded object. GCS
	// objects have no writer role; OWNER is the role that allows updates.
	ShareWith string
}

// Uploader writes artifacts to a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient builds a storage client from a service account key. An empty key
// falls back to Application Default Credentials.
func NewClient(ctx context.Context, credentialsJSON []byte, opts ...option.ClientOption) (*storage.Client, error) {
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return client, nil
}

// New creates a GCS-backed uploader.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{client: client, cfg: cfg, logger: logger}, nil
}

// Upload deletes any object with the same name, writes data and applies the
// optional grant. It returns a gs:// URI.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	objectName := name
	if prefix := strings.Trim(u.cfg.Prefix, "/"); prefix != "" {
		objectName = path.Join(prefix, name)
	}
	obj := u.client.Bucket(u.cfg.Bucket).Object(objectName)

	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("delete existing object: %w", err)
	}
	u.logger.Debug("existing object cleared", zap.String("object", objectName))

	writer := obj.NewWriter(ctx)
	writer.ContentType = storagepkg.ContentTypeJSON
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	if u.cfg.ShareWith != "" {
		entity := storage.ACLEntity("user-" + u.cfg.ShareWith)
		if err := obj.ACL().Set(ctx, entity, storage.RoleOwner); err != nil {
			return "", fmt.Errorf("grant access to %s: %w", u.cfg.ShareWith, err)
		}
		u.logger.Info("object shared", zap.String("object", objectName), zap.String("share_with", u.cfg.ShareWith))
	}

	return fmt.Sprintf("gs://%s/%s", u.cfg.Bucket, objectName), nil
}
