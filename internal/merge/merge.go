// Package merge combines the JSON array files found in a directory tree into a
// single array file.
package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/job"
)

// ErrRootNotFound is returned when the root directory does not exist.
var ErrRootNotFound = errors.New("merge root not found")

// Options configures Combine.
type Options struct {
	// Root holds the subdirectories to merge.
	Root string
	// Prefix selects subdirectories of Root by name.
	Prefix string
	// Output is the combined file. It is only written when at least one
	// element was read.
	Output string
}

// Result describes a merge run.
type Result struct {
	Files    []string
	Skipped  []string
	Elements int
	Written  bool
}

// Combine concatenates the elements of every <Root>/<Prefix>*/*.json array
// file, in sorted directory then file order, and writes them to Output.
// Unreadable or malformed files are logged and skipped.
func Combine(opts Options, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result

	info, err := os.Stat(opts.Root)
	if err != nil || !info.IsDir() {
		logger.Error("merge root does not exist", zap.String("root", opts.Root))
		return res, fmt.Errorf("%w: %s", ErrRootNotFound, opts.Root)
	}

	dirs, err := filepath.Glob(filepath.Join(opts.Root, opts.Prefix+"*"))
	if err != nil {
		return res, fmt.Errorf("glob %s: %w", opts.Root, err)
	}
	sort.Strings(dirs)

	combined := []json.RawMessage{}
	for _, dir := range dirs {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return res, fmt.Errorf("glob %s: %w", dir, err)
		}
		sort.Strings(files)
		for _, file := range files {
			elems, err := readArray(file)
			if err != nil {
				logger.Warn("skipping file", zap.String("file", file), zap.Error(err))
				res.Skipped = append(res.Skipped, file)
				continue
			}
			combined = append(combined, elems...)
			res.Files = append(res.Files, file)
			logger.Info("loaded data", zap.String("file", file), zap.Int("elements", len(elems)))
		}
	}
	res.Elements = len(combined)

	if len(combined) == 0 {
		logger.Info("no data to combine", zap.String("root", opts.Root))
		return res, nil
	}
	if err := job.WriteJSON(opts.Output, combined); err != nil {
		return res, fmt.Errorf("write combined file: %w", err)
	}
	res.Written = true
	logger.Info("combined file written", zap.String("output", opts.Output), zap.Int("elements", res.Elements))
	return res, nil
}

func readArray(path string) ([]json.RawMessage, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	// #nosec G304 -- path comes from a glob under the operator supplied root.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return elems, nil
}
