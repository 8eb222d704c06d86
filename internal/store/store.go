// Package store persists the set of already-processed post ids.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend loads and saves dedup state. Save replaces whatever was stored
// before; it never appends.
type Backend interface {
	// Load returns the stored set. A backend that has never been saved
	// returns an empty set and no error.
	Load(ctx context.Context) (*Seen, error)

	// Save replaces the stored set with seen and stamps it with
	// seen.UpdatedAt.
	Save(ctx context.Context, seen *Seen) error

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // json file or sqlite database
	DSN     string // postgres connection string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return NewJSONFile(opts.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.Path)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("%w %q (want %s, %s or %s)",
			ErrUnknownBackend, opts.Backend, BackendJSON, BackendSQLite, BackendPostgres)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	// Timestamps written by Python's datetime.isoformat() carry no zone.
	return time.ParseInLocation("2006-01-02T15:04:05.999999", value, time.UTC)
}
