package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS subwatch_seen_posts (
  id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS subwatch_metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`

// Postgres stores dedup state in a shared Postgres database so several
// hosts can scan against the same history.
type Postgres struct {
	conn *pgx.Conn
}

// OpenPostgres connects using dsn and creates the tables if missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{conn: conn}, nil
}

func (p *Postgres) Load(ctx context.Context) (*Seen, error) {
	rows, err := p.conn.Query(ctx, "SELECT id FROM subwatch_seen_posts")
	if err != nil {
		return nil, fmt.Errorf("query seen posts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect seen posts: %w", err)
	}
	seen := NewSeen(ids...)

	var updated string
	err = p.conn.QueryRow(ctx, "SELECT value FROM subwatch_metadata WHERE key = 'last_updated'").Scan(&updated)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read last_updated: %w", err)
	}
	if seen.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}
	return seen, nil
}

// Save replaces the table contents in a single transaction using COPY.
func (p *Postgres) Save(ctx context.Context, seen *Seen) error {
	if seen == nil {
		return errors.New("seen set is required")
	}

	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM subwatch_seen_posts"); err != nil {
		return fmt.Errorf("clear seen posts: %w", err)
	}

	ids := seen.IDs()
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"subwatch_seen_posts"}, []string{"id"}, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy seen posts: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO subwatch_metadata (key, value) VALUES ('last_updated', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, formatTime(seen.UpdatedAt)); err != nil {
		return fmt.Errorf("write last_updated: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close(context.Background())
}
