// Package drive provides an Uploader backed by a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/jobpost-scraper/internal/storage"
)

// Config captures the destination folder and the optional grant.
type Config struct {
	FolderID string
	// ShareWith, when set, is granted writer access to the uploaded file.
	ShareWith string
}

// Uploader replaces files inside a Drive folder.
type Uploader struct {
	svc    *drive.Service
	cfg    Config
	logger *zap.Logger
}

// NewService builds a Drive client from a service account key.
func NewService(ctx context.Context, credentialsJSON []byte, opts ...option.ClientOption) (*drive.Service, error) {
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON), option.WithScopes(drive.DriveScope))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// New creates a Drive-backed uploader.
func New(svc *drive.Service, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if svc == nil {
		return nil, fmt.Errorf("drive service is required")
	}
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("folder id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{svc: svc, cfg: cfg, logger: logger}, nil
}

// Upload deletes every file called name in the folder, creates the new one
// and applies the optional grant. It returns the file's web link, or a
// drive:// URI when the API does not report one.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}

	existing, err := u.svc.Files.List().
		Q(fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(u.cfg.FolderID))).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list existing files: %w", err)
	}
	for _, f := range existing.Files {
		if err := u.svc.Files.Delete(f.Id).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("delete existing file %s: %w", f.Id, err)
		}
		u.logger.Info("existing file deleted", zap.String("file_id", f.Id), zap.String("name", f.Name))
	}

	created, err := u.svc.Files.Create(&drive.File{
		Name:     name,
		Parents:  []string{u.cfg.FolderID},
		MimeType: storage.ContentTypeJSON,
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(storage.ContentTypeJSON)).
		Fields("id, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	u.logger.Info("file uploaded", zap.String("file_id", created.Id), zap.String("name", name))

	if u.cfg.ShareWith != "" {
		_, err := u.svc.Permissions.Create(created.Id, &drive.Permission{
			Type:         "user",
			Role:         "writer",
			EmailAddress: u.cfg.ShareWith,
		}).
			SendNotificationEmail(false).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("grant access to %s: %w", u.cfg.ShareWith, err)
		}
		u.logger.Info("file shared", zap.String("file_id", created.Id), zap.String("share_with", u.cfg.ShareWith))
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "drive://" + created.Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
