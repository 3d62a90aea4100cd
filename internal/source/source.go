// Package source loads URL lists from local files or remote listings and
// writes them back out as chunk files or plain line files.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
)

// Loader reads URL lists. Remote locations go through the fetcher.
type Loader struct {
	fetcher crawler.Fetcher
}

// NewLoader returns a Loader. fetcher may be nil when only local files are read.
func NewLoader(fetcher crawler.Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load returns the URLs stored at location, a file path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, location string) ([]string, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	urls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	return urls, nil
}

// Read returns the raw bytes stored at location.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	if !IsRemote(location) {
		// #nosec G304 -- location is an operator supplied input.
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		return data, nil
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("fetch %s: no fetcher configured", location)
	}
	resp, err := l.fetcher.Fetch(ctx, crawler.FetchRequest{URL: location})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fetch %s: HTTP %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse decodes a URL list. A document starting with '[' is a JSON array of
// strings; anything else is one URL per line with blank lines dropped.
func Parse(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var urls []string
		if err := json.Unmarshal(trimmed, &urls); err != nil {
			return nil, fmt.Errorf("decode url array: %w", err)
		}
		return urls, nil
	}
	urls := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan url lines: %w", err)
	}
	return urls, nil
}

// Dedupe drops repeated entries, keeping the first occurrence.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
