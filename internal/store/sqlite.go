// Package store provides storage backends for reveal.
//
// This file implements an SQLite-backed store for users and visitors.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/nampox/reveal/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// A single connection keeps AddUser's insert-then-read on one session.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "db_path", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT id, name, email, role FROM users ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		slog.Error("SQLiteStore ListUsers scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore ListUsers succeeded", "count", len(users))
	return users, nil
}

func (s *SQLiteStore) AddUser(req models.NewUserRequest) (models.User, error) {
	res, err := s.db.Exec(`INSERT INTO users (name, email, role) VALUES (?, ?, ?)`, req.Name, req.Email, req.Role)
	if err != nil {
		slog.Error("SQLiteStore AddUser failed", "error", err, "email", req.Email)
		return models.User{}, fmt.Errorf("failed to insert user %s: %w", req.Email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read inserted user id: %w", err)
	}
	u := models.User{ID: int(id), Name: req.Name, Email: req.Email, Role: req.Role}
	slog.Debug("SQLiteStore AddUser succeeded", "id", u.ID)
	return u, nil
}

func (s *SQLiteStore) CreateVisitor(id string) (models.Visitor, error) {
	if id == "" {
		return models.Visitor{}, models.ErrEmptyVisitorID
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO visitors (id, visited, created_at) VALUES (?, 0, ?)`, id, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore CreateVisitor failed", "error", err, "visitorID", id)
		return models.Visitor{}, fmt.Errorf("failed to insert visitor %s: %w", id, err)
	}
	v, err := s.GetVisitor(id)
	if err != nil {
		return models.Visitor{}, err
	}
	if v == nil {
		return models.Visitor{}, fmt.Errorf("visitor %s missing after insert: %w", id, models.ErrVisitorNotFound)
	}
	return *v, nil
}

func (s *SQLiteStore) GetVisitor(id string) (*models.Visitor, error) {
	row := s.db.QueryRow(`SELECT id, visited, created_at, completed_at FROM visitors WHERE id = ?`, id)
	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetVisitor not found", "visitorID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetVisitor failed", "error", err, "visitorID", id)
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) MarkVisited(id string, at time.Time) (models.Visitor, error) {
	res, err := s.db.Exec(`UPDATE visitors SET visited = 1, completed_at = COALESCE(completed_at, ?) WHERE id = ?`, at.UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore MarkVisited failed", "error", err, "visitorID", id)
		return models.Visitor{}, fmt.Errorf("failed to mark visitor %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Visitor{}, fmt.Errorf("mark visited %s: %w", id, models.ErrVisitorNotFound)
	}
	v, err := s.GetVisitor(id)
	if err != nil {
		return models.Visitor{}, err
	}
	if v == nil {
		return models.Visitor{}, fmt.Errorf("mark visited %s: %w", id, models.ErrVisitorNotFound)
	}
	slog.Debug("SQLiteStore MarkVisited succeeded", "visitorID", id)
	return *v, nil
}

// PruneVisitors deletes visitors created before cutoff that never reached the letter.
func (s *SQLiteStore) PruneVisitors(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM visitors WHERE visited = 0 AND created_at < ?`, cutoff.UTC())
	if err != nil {
		slog.Error("SQLiteStore PruneVisitors failed", "error", err)
		return 0, fmt.Errorf("failed to prune visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("SQLiteStore PruneVisitors succeeded", "deleted", n)
	return n, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
