// Package memory keeps published upload notices in process for tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JakeFAU/jobpost-scraper/internal/publisher"
)

// Publisher encodes payloads the way the Pub/Sub publisher does and keeps
// them per topic.
type Publisher struct {
	mu      sync.Mutex
	seq     int
	byTopic map[string][][]byte
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{byTopic: make(map[string][][]byte)}
}

// Publish JSON-encodes payload and appends it to topic.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.byTopic[topic] = append(p.byTopic[topic], data)
	return fmt.Sprintf("memory-%d", p.seq), nil
}

// Notices decodes every message published to topic as an UploadNotice, in
// publish order.
func (p *Publisher) Notices(topic string) ([]publisher.UploadNotice, error) {
	p.mu.Lock()
	raw := append([][]byte(nil), p.byTopic[topic]...)
	p.mu.Unlock()

	notices := make([]publisher.UploadNotice, 0, len(raw))
	for i, data := range raw {
		var n publisher.UploadNotice
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("decode message %d on %s: %w", i, topic, err)
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// Count returns how many messages were published to topic.
func (p *Publisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byTopic[topic])
}
