package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestSeen(t *testing.T) {
	s := NewSeen("b", "a", "b")
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	s.MarkSeen("c")
	s.MarkSeen("")
	if !s.Contains("c") || s.Contains("") {
		t.Fatalf("unexpected membership: %v", s.IDs())
	}
	if got := s.IDs(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("ids = %v", got)
	}

	var zero Seen
	zero.MarkSeen("x")
	if !zero.Contains("x") {
		t.Fatal("zero value should accept ids")
	}
}

func TestJSONFile_MissingIsEmpty(t *testing.T) {
	f, _ := NewJSONFile(filepath.Join(t.TempDir(), "seen_posts.json"))
	seen, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seen.Len() != 0 {
		t.Fatalf("len = %d, want 0", seen.Len())
	}
}

func TestJSONFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "seen_posts.json")
	f, _ := NewJSONFile(path)
	ctx := context.Background()

	in := NewSeen("abc", "def")
	in.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := f.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(out.IDs(), []string{"abc", "def"}) {
		t.Fatalf("ids = %v", out.IDs())
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("updated = %v, want %v", out.UpdatedAt, in.UpdatedAt)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestJSONFile_SaveReplaces(t *testing.T) {
	f, _ := NewJSONFile(filepath.Join(t.TempDir(), "seen_posts.json"))
	ctx := context.Background()

	if err := f.Save(ctx, NewSeen("a", "b")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.Save(ctx, NewSeen("c")); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(out.IDs(), []string{"c"}) {
		t.Fatalf("ids = %v, want [c]", out.IDs())
	}
}

func TestJSONFile_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_posts.json")
	data := `{"posts": ["x1", "x2"], "last_updated": "2025-11-02T08:15:30.123456", "extra": true}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, _ := NewJSONFile(path)
	seen, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seen.Len() != 2 || !seen.Contains("x2") {
		t.Fatalf("ids = %v", seen.IDs())
	}
	want := time.Date(2025, 11, 2, 8, 15, 30, 123456000, time.UTC)
	if !seen.UpdatedAt.Equal(want) {
		t.Fatalf("updated = %v, want %v", seen.UpdatedAt, want)
	}
}

func TestJSONFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_posts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, _ := NewJSONFile(path)
	if _, err := f.Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestJSONFile_DefaultPath(t *testing.T) {
	f, _ := NewJSONFile("  ")
	if f.Path() != DefaultJSONPath {
		t.Fatalf("path = %q", f.Path())
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "seen.db")
	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	empty, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if empty.Len() != 0 || !empty.UpdatedAt.IsZero() {
		t.Fatalf("expected empty state, got %v", empty.IDs())
	}

	in := NewSeen("p1", "p2", "p3")
	in.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save(ctx, NewSeen("p1", "p4")); err != nil {
		t.Fatalf("save again: %v", err)
	}

	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(out.IDs(), []string{"p1", "p4"}) {
		t.Fatalf("ids = %v", out.IDs())
	}
}

func TestSQLite_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.db")
	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var version string
	if err := st.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != "1" {
		t.Fatalf("schema version = %s", version)
	}

	if _, err := st.db.Exec("UPDATE metadata SET value = '99' WHERE key = 'schema_version'"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = st.Close()

	if _, err := OpenSQLite(ctx, path); err == nil {
		t.Fatal("expected error for newer schema")
	}
}

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("SUBWATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SUBWATCH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	st, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	in := NewSeen("pg1", "pg2")
	in.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(out.IDs(), []string{"pg1", "pg2"}) {
		t.Fatalf("ids = %v", out.IDs())
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("updated = %v, want %v", out.UpdatedAt, in.UpdatedAt)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, Options{Path: filepath.Join(dir, "s.json")})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if _, ok := b.(*JSONFile); !ok {
		t.Fatalf("default backend = %T, want *JSONFile", b)
	}

	b, err = Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(dir, "s.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	_ = b.Close()

	if _, err := Open(ctx, Options{Backend: BackendPostgres}); err == nil {
		t.Fatal("expected error for missing dsn")
	}

	_, err = Open(ctx, Options{Backend: "redis"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
}
