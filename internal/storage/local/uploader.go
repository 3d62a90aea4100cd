// Package local implements an Uploader that copies artifacts into a directory.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Config captures the parameters for the local filesystem destination.
type Config struct {
	// BaseDir is the root directory where artifacts are stored.
	BaseDir string
	// ShareWith is recorded in the log only; the filesystem has no grants.
	ShareWith string
}

// Uploader writes artifacts to the local filesystem.
type Uploader struct {
	baseDir   string
	shareWith string
	logger    *zap.Logger
}

// New creates a local filesystem uploader, creating BaseDir if needed.
func New(cfg Config, logger *zap.Logger) (*Uploader, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Uploader{
		baseDir:   cfg.BaseDir,
		shareWith: cfg.ShareWith,
		logger:    logger,
	}, nil
}

// Upload replaces the file name under the base directory and returns a file:// URI.
func (u *Uploader) Upload(_ context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}

	fullPath := filepath.Join(u.baseDir, name)

	// Clean the path and verify it's within baseDir to prevent path traversal.
	cleanBaseDir := filepath.Clean(u.baseDir)
	cleanFullPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove existing file: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if u.shareWith != "" {
		u.logger.Info("share request ignored for local destination", zap.String("share_with", u.shareWith))
	}

	return fmt.Sprintf("file://%s", fullPath), nil
}
