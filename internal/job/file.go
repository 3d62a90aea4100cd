package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const indent = "    "

// Encode writes v as a 4-space indented JSON document. HTML characters and
// non-ASCII text are written literally.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteJSON encodes v into path, replacing any existing file.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteFile persists outcomes as a JSON array.
func WriteFile(path string, outcomes []Outcome) error {
	if outcomes == nil {
		outcomes = []Outcome{}
	}
	return WriteJSON(path, outcomes)
}

// ReadFile loads a JSON array of outcomes.
func ReadFile(path string) ([]Outcome, error) {
	// #nosec G304 -- path is an operator supplied artifact location.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var outcomes []Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return outcomes, nil
}

// AppendFile reads the existing array at path (if any), appends outcomes and
// rewrites the file. It returns the number of records now stored.
func AppendFile(path string, outcomes []Outcome) (int, error) {
	existing, err := ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	combined := make([]Outcome, 0, len(existing)+len(outcomes))
	combined = append(combined, existing...)
	combined = append(combined, outcomes...)
	if err := WriteFile(path, combined); err != nil {
		return 0, err
	}
	return len(combined), nil
}
