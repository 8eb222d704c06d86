package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is the database used when no path is configured.
const DefaultSQLitePath = "seen_posts.db"

// SQLite stores dedup state in a local sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultSQLitePath
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (*Seen, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM seen_posts")
	if err != nil {
		return nil, fmt.Errorf("query seen posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := NewSeen()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen post: %w", err)
		}
		seen.MarkSeen(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen posts: %w", err)
	}

	var updated string
	err = s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'last_updated'").Scan(&updated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read last_updated: %w", err)
	}
	if seen.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}

	return seen, nil
}

// Save replaces the table contents in a single transaction.
func (s *SQLite) Save(ctx context.Context, seen *Seen) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if seen == nil {
		return errors.New("seen set is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM seen_posts"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear seen posts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO seen_posts(id) VALUES(?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	for _, id := range seen.IDs() {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert seen post %s: %w", id, err)
		}
	}
	_ = stmt.Close()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata(key, value) VALUES('last_updated', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, formatTime(seen.UpdatedAt)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("write last_updated: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
