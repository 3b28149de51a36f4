package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/quasilyte/gdata/v2"

	"github.com/nampox/reveal/internal/models"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 4 || users[0].Role != "Admin" {
		t.Fatalf("expected 4 seeded users starting with an admin, got %+v", users)
	}

	u, err := s.AddUser(models.NewUserRequest{Name: "Alice", Email: "alice@example.com", Role: "User"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if u.ID != 5 {
		t.Errorf("expected new user id 5, got %d", u.ID)
	}
	users, _ = s.ListUsers()
	if len(users) != 5 || users[4].Email != "alice@example.com" {
		t.Errorf("new user not listed: %+v", users)
	}

	v, err := s.GetVisitor("nobody")
	if err != nil || v != nil {
		t.Errorf("expected unknown visitor to be (nil, nil), got (%v, %v)", v, err)
	}

	created, err := s.CreateVisitor("v-1")
	if err != nil {
		t.Fatalf("CreateVisitor: %v", err)
	}
	if created.Visited {
		t.Error("new visitor should not be marked visited")
	}
	again, err := s.CreateVisitor("v-1")
	if err != nil || again.ID != "v-1" {
		t.Errorf("CreateVisitor should be idempotent, got %+v, %v", again, err)
	}

	first := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	marked, err := s.MarkVisited("v-1", first)
	if err != nil {
		t.Fatalf("MarkVisited: %v", err)
	}
	if !marked.Visited || marked.CompletedAt == nil || !marked.CompletedAt.Equal(first) {
		t.Errorf("unexpected visitor after mark: %+v", marked)
	}
	marked, err = s.MarkVisited("v-1", first.Add(time.Hour))
	if err != nil {
		t.Fatalf("second MarkVisited: %v", err)
	}
	if !marked.CompletedAt.Equal(first) {
		t.Errorf("second mark should keep the first completion time, got %v", marked.CompletedAt)
	}

	if _, err := s.MarkVisited("ghost", first); !errors.Is(err, models.ErrVisitorNotFound) {
		t.Errorf("expected ErrVisitorNotFound, got %v", err)
	}
	if _, err := s.CreateVisitor(""); !errors.Is(err, models.ErrEmptyVisitorID) {
		t.Errorf("expected ErrEmptyVisitorID, got %v", err)
	}

	if _, err := s.CreateVisitor("v-2"); err != nil {
		t.Fatalf("CreateVisitor: %v", err)
	}
	if n, err := s.PruneVisitors(time.Now().Add(-time.Hour)); err != nil || n != 0 {
		t.Errorf("expected nothing older than an hour to prune, got %d, %v", n, err)
	}
	if n, err := s.PruneVisitors(time.Now().Add(time.Hour)); err != nil || n != 1 {
		t.Errorf("expected only the unvisited visitor to be pruned, got %d, %v", n, err)
	}
	if v, _ := s.GetVisitor("v-2"); v != nil {
		t.Error("pruned visitor is still readable")
	}
	if v, _ := s.GetVisitor("v-1"); v == nil || !v.Visited {
		t.Error("visited visitors must survive pruning")
	}
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	exerciseStore(t, s)
	if ids := s.VisitorIDs(); len(ids) != 1 || ids[0] != "v-1" {
		t.Errorf("unexpected visitor ids %v", ids)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reveal.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(path))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)

	// Migrations must be re-runnable against an existing file.
	s2, err := NewSQLiteStore(WithSQLiteDSN(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	users, _ := s2.ListUsers()
	if len(users) != 5 {
		t.Errorf("expected persisted users after reopen, got %d", len(users))
	}
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error without DSN")
	}
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()
	pgStore.db.Exec("DELETE FROM visitors")
	pgStore.db.Exec("DELETE FROM users WHERE id > 4")
	pgStore.db.Exec("SELECT setval(pg_get_serial_sequence('users', 'id'), 4)")
	exerciseStore(t, pgStore)
}

func TestDetectDSNType(t *testing.T) {
	tests := map[string]string{
		"":                                "memory",
		"memory":                          "memory",
		"postgres://u:p@localhost/reveal": "postgres",
		"host=localhost dbname=reveal":    "postgres",
		"/var/lib/reveal/reveal.db":       "sqlite",
	}
	for dsn, want := range tests {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestLocalFlagDegradedMode(t *testing.T) {
	f := NewLocalFlag(nil)
	visited, err := f.HasVisited()
	if err != nil || visited {
		t.Fatalf("expected fresh flag to be unset, got %v, %v", visited, err)
	}
	if err := f.MarkVisited(time.Now()); err != nil {
		t.Fatalf("MarkVisited: %v", err)
	}
	if visited, _ := f.HasVisited(); !visited {
		t.Error("expected flag to be set in memory")
	}
	f.Reset()
	if visited, _ := f.HasVisited(); visited {
		t.Error("expected Reset to clear the flag")
	}
}

func TestLocalFlagPersists(t *testing.T) {
	home := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", home)
	defer os.Setenv("HOME", originalHome)

	appName := fmt.Sprintf("reveal_test_%d", time.Now().UnixNano())
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		t.Skipf("gdata unavailable: %v", err)
	}
	f := NewLocalFlag(m)
	if err := f.MarkVisited(time.Now()); err != nil {
		t.Fatalf("MarkVisited: %v", err)
	}

	m2, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		t.Fatalf("reopen gdata: %v", err)
	}
	visited, err := NewLocalFlag(m2).HasVisited()
	if err != nil {
		t.Fatalf("HasVisited: %v", err)
	}
	if !visited {
		t.Error("expected flag to survive reopening the data directory")
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
