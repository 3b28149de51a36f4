// Package store provides storage backends for reveal.
//
// This file implements a PostgreSQL-backed store for users and visitors.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/nampox/reveal/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT id, name, email, role FROM users ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		slog.Error("PostgresStore ListUsers scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore ListUsers succeeded", "count", len(users))
	return users, nil
}

func (s *PostgresStore) AddUser(req models.NewUserRequest) (models.User, error) {
	u := models.User{Name: req.Name, Email: req.Email, Role: req.Role}
	err := s.db.QueryRow(`INSERT INTO users (name, email, role) VALUES ($1, $2, $3) RETURNING id`,
		req.Name, req.Email, req.Role).Scan(&u.ID)
	if err != nil {
		slog.Error("PostgresStore AddUser failed", "error", err, "email", req.Email)
		return models.User{}, fmt.Errorf("failed to insert user %s: %w", req.Email, err)
	}
	slog.Debug("PostgresStore AddUser succeeded", "id", u.ID)
	return u, nil
}

func (s *PostgresStore) CreateVisitor(id string) (models.Visitor, error) {
	if id == "" {
		return models.Visitor{}, models.ErrEmptyVisitorID
	}
	row := s.db.QueryRow(`
		INSERT INTO visitors (id, visited, created_at) VALUES ($1, FALSE, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, visited, created_at, completed_at`, id, time.Now().UTC())
	v, err := scanVisitor(row)
	if err != nil {
		slog.Error("PostgresStore CreateVisitor failed", "error", err, "visitorID", id)
		return models.Visitor{}, fmt.Errorf("failed to insert visitor %s: %w", id, err)
	}
	return v, nil
}

func (s *PostgresStore) GetVisitor(id string) (*models.Visitor, error) {
	row := s.db.QueryRow(`SELECT id, visited, created_at, completed_at FROM visitors WHERE id = $1`, id)
	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetVisitor not found", "visitorID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetVisitor failed", "error", err, "visitorID", id)
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) MarkVisited(id string, at time.Time) (models.Visitor, error) {
	row := s.db.QueryRow(`
		UPDATE visitors SET visited = TRUE, completed_at = COALESCE(completed_at, $1)
		WHERE id = $2
		RETURNING id, visited, created_at, completed_at`, at.UTC(), id)
	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Visitor{}, fmt.Errorf("mark visited %s: %w", id, models.ErrVisitorNotFound)
	}
	if err != nil {
		slog.Error("PostgresStore MarkVisited failed", "error", err, "visitorID", id)
		return models.Visitor{}, fmt.Errorf("failed to mark visitor %s: %w", id, err)
	}
	slog.Debug("PostgresStore MarkVisited succeeded", "visitorID", id)
	return v, nil
}

// PruneVisitors deletes visitors created before cutoff that never reached the letter.
func (s *PostgresStore) PruneVisitors(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM visitors WHERE visited = FALSE AND created_at < $1`, cutoff.UTC())
	if err != nil {
		slog.Error("PostgresStore PruneVisitors failed", "error", err)
		return 0, fmt.Errorf("failed to prune visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("PostgresStore PruneVisitors succeeded", "deleted", n)
	return n, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
