package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultJSONPath is the state file used when no path is configured.
const DefaultJSONPath = "seen_posts.json"

// JSONFile stores dedup state as a single JSON document:
//
//	{"posts": ["abc", ...], "last_updated": "2026-03-01T12:00:00Z"}
//
// Unknown fields are ignored on load.
type JSONFile struct {
	path string
}

type jsonState struct {
	Posts       []string `json:"posts"`
	LastUpdated string   `json:"last_updated"`
}

// NewJSONFile returns a backend for the file at path.
func NewJSONFile(path string) (*JSONFile, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultJSONPath
	}
	return &JSONFile{path: path}, nil
}

// Path returns the state file location.
func (f *JSONFile) Path() string {
	return f.path
}

func (f *JSONFile) Load(_ context.Context) (*Seen, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSeen(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st jsonState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", f.path, err)
	}

	seen := NewSeen(st.Posts...)
	seen.UpdatedAt, err = parseTime(st.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}
	return seen, nil
}

// Save writes to a temporary file next to the target and renames it into
// place, so readers see either the old or the new state.
func (f *JSONFile) Save(_ context.Context, seen *Seen) error {
	if seen == nil {
		return errors.New("seen set is required")
	}

	data, err := json.MarshalIndent(jsonState{
		Posts:       seen.IDs(),
		LastUpdated: formatTime(seen.UpdatedAt),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (f *JSONFile) Close() error {
	return nil
}
