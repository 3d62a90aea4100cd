package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JakeFAU/jobpost-scraper/internal/job"
)

// DefaultChunkSize is the number of URLs per chunk file.
const DefaultChunkSize = 25000

// Chunk splits urls into consecutive slices of at most size entries. The
// slices share the backing array of urls.
func Chunk(urls []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(urls)+size-1)/size)
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		chunks = append(chunks, urls[start:end:end])
	}
	return chunks
}

// ChunkFileName returns the 1-based chunk file name.
func ChunkFileName(n int) string {
	return fmt.Sprintf("job_urls_%d.json", n)
}

// WriteChunks writes urls into dir as job_urls_<n>.json files and returns
// the paths written, in order.
func WriteChunks(dir string, urls []string, size int) ([]string, error) {
	chunks := Chunk(urls, size)
	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		path := filepath.Join(dir, ChunkFileName(i+1))
		if err := job.WriteJSON(path, chunk); err != nil {
			return paths, fmt.Errorf("write chunk %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteLines writes one URL per line, each newline-terminated.
func WriteLines(path string, urls []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	// #nosec G304 -- path is an operator supplied output location.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, u := range urls {
		if _, err := w.WriteString(u + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
