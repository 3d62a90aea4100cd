package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/config"
	"github.com/JakeFAU/jobpost-scraper/internal/hash/sha256"
	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/metrics"
	"github.com/JakeFAU/jobpost-scraper/internal/publisher"
	pubsubpublisher "github.com/JakeFAU/jobpost-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/jobpost-scraper/internal/storage"
	"github.com/JakeFAU/jobpost-scraper/internal/storage/drive"
	"github.com/JakeFAU/jobpost-scraper/internal/storage/gcs"
	"github.com/JakeFAU/jobpost-scraper/internal/storage/local"
)

// closeFunc releases a client built by a factory.
type closeFunc func() error

func noClose() error { return nil }

// Factories are variables so tests can substitute fakes.
var (
	newUploader  = buildUploader
	newPublisher = buildPublisher
)

func newUploadCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Uploads the combined summary, replacing any previous copy",
		Long: `Uploads the combined artifact to the configured provider (drive, gcs or
local) inside upload.folder_id. An existing file with the same name is removed
first. When upload.share_with is set the identity is granted write access, and
when notify.topic is set a notice is published to Pub/Sub. --dry-run reads and
describes the artifact without contacting any provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			if file != "" {
				rt.Config.Upload.File = file
			}
			return runUpload(cmd.Context(), rt, dryRun)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "artifact to upload (overrides upload.file)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read the artifact but skip the upload and the notice")
	return cmd
}

func runUpload(ctx context.Context, rt *Runtime, dryRun bool) error {
	logger := logging.FromContext(ctx)
	cfg := rt.Config.Upload
	if dryRun {
		return dryRunUpload(ctx, cfg.File, logger)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.File); err != nil {
		return fmt.Errorf("artifact %s: %w", cfg.File, err)
	}

	up, closeUp, err := newUploader(ctx, cfg, logger.Named(cfg.Provider))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeUp(); cerr != nil {
			logger.Warn("close uploader", zap.Error(cerr))
		}
	}()

	uri, err := storage.UploadFile(ctx, up, cfg.File)
	metrics.ObserveUpload(cfg.Provider, err)
	if err != nil {
		return err
	}
	logger.Info("File uploaded", zap.String("file", cfg.File), zap.String("uri", uri))

	if !rt.Config.Notify.Enabled() {
		return nil
	}
	pub, closePub, err := newPublisher(ctx, rt.Config.Notify, []byte(cfg.CredentialsJSON))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closePub(); cerr != nil {
			logger.Warn("close publisher", zap.Error(cerr))
		}
	}()

	records, digest := describeArtifact(cfg.File)
	notice := publisher.UploadNotice{
		RunID:      rt.RunID,
		File:       filepath.Base(cfg.File),
		URI:        uri,
		Provider:   cfg.Provider,
		Records:    records,
		SHA256:     digest,
		UploadedAt: time.Now().UTC(),
	}
	id, err := pub.Publish(ctx, rt.Config.Notify.Topic, notice)
	if err != nil {
		return fmt.Errorf("publish upload notice: %w", err)
	}
	logger.Info("upload notice published", zap.String("topic", rt.Config.Notify.Topic), zap.String("message_id", id))
	return nil
}

// dryRunUpload pushes the artifact through the no-op uploader so a missing or
// unreadable file still fails, then reports what would have been sent.
func dryRunUpload(ctx context.Context, path string, logger *zap.Logger) error {
	if _, err := storage.UploadFile(ctx, storage.NoOpUploader{}, path); err != nil {
		return err
	}
	records, digest := describeArtifact(path)
	logger.Info("dry run, artifact not uploaded",
		zap.String("file", path),
		zap.Int("records", records),
		zap.String("sha256", digest),
	)
	return nil
}

func buildUploader(ctx context.Context, cfg config.UploadConfig, logger *zap.Logger) (storage.Uploader, closeFunc, error) {
	creds := []byte(cfg.CredentialsJSON)
	switch cfg.Provider {
	case config.ProviderDrive:
		svc, err := drive.NewService(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		up, err := drive.New(svc, drive.Config{FolderID: cfg.FolderID, ShareWith: cfg.ShareWith}, logger)
		if err != nil {
			return nil, nil, err
		}
		return up, noClose, nil
	case config.ProviderGCS:
		client, err := gcs.NewClient(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		up, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket, Prefix: cfg.FolderID, ShareWith: cfg.ShareWith}, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return up, client.Close, nil
	case config.ProviderLocal:
		up, err := local.New(local.Config{
			BaseDir:   filepath.Join(cfg.LocalDir, cfg.FolderID),
			ShareWith: cfg.ShareWith,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return up, noClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported upload provider %q", cfg.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.NotifyConfig, credentialsJSON []byte) (publisher.Publisher, closeFunc, error) {
	client, err := pubsubpublisher.NewClient(ctx, cfg.ProjectID, credentialsJSON)
	if err != nil {
		return nil, nil, err
	}
	pub := pubsubpublisher.New(client)
	return pub, pub.Close, nil
}

// describeArtifact returns the element count of the JSON array at path and
// its SHA-256 digest. The count is zero when the file is not an array.
func describeArtifact(path string) (int, string) {
	// #nosec G304 -- path is an operator supplied artifact location.
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, ""
	}
	digest := sha256.Sum(data)
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return 0, digest
	}
	return len(elems), digest
}
