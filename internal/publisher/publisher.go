// Package publisher announces finished artifacts to downstream consumers.
package publisher

import (
	"context"
	"time"
)

// Publisher sends a JSON payload to a topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// UploadNotice is published after an artifact upload succeeds.
type UploadNotice struct {
	RunID      string    `json:"run_id"`
	File       string    `json:"file"`
	URI        string    `json:"uri"`
	Provider   string    `json:"provider"`
	Records    int       `json:"records"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}
