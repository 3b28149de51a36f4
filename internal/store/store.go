// Package store provides storage backends for reveal.
//
// It includes an in-memory store plus SQLite and PostgreSQL stores for the user
// directory and the per-visitor "visited" flag, and a gdata-backed local flag for
// clients that keep the flag on the visitor's own machine.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nampox/reveal/internal/models"
)

// Store defines the persistence operations the API needs.
type Store interface {
	ListUsers() ([]models.User, error)
	AddUser(req models.NewUserRequest) (models.User, error)
	CreateVisitor(id string) (models.Visitor, error)
	GetVisitor(id string) (*models.Visitor, error)
	MarkVisited(id string, at time.Time) (models.Visitor, error)
	PruneVisitors(cutoff time.Time) (int64, error)
	Close() error
}

// Opts holds configuration for SQL-backed stores.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports whether a DSN addresses "postgres", "memory" or "sqlite".
func DetectDSNType(dsn string) string {
	switch {
	case dsn == "" || dsn == "memory" || dsn == ":memory:":
		return "memory"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	default:
		return "sqlite"
	}
}

// Open builds the store matching the DSN type.
func Open(dsn string) (Store, error) {
	switch DetectDSNType(dsn) {
	case "memory":
		slog.Debug("store.Open: using in-memory store")
		return NewInMemoryStore(), nil
	case "postgres":
		slog.Debug("store.Open: using PostgreSQL store")
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		slog.Debug("store.Open: using SQLite store", "db_path", dsn)
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

// New applies opts and opens the matching store. No DSN means in-memory.
func New(opts ...Option) (Store, error) {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	return Open(o.DSN)
}

// InMemoryStore is a simple in-memory store seeded with the default user directory.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    []models.User
	visitors map[string]models.Visitor
}

// NewInMemoryStore creates a seeded in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    models.SeedUsers(),
		visitors: make(map[string]models.Visitor),
	}
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// AddUser appends a user with the next sequential ID.
func (s *InMemoryStore) AddUser(req models.NewUserRequest) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{
		ID:    len(s.users) + 1,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	s.users = append(s.users, u)
	slog.Debug("InMemoryStore AddUser succeeded", "id", u.ID)
	return u, nil
}

func (s *InMemoryStore) CreateVisitor(id string) (models.Visitor, error) {
	if id == "" {
		return models.Visitor{}, models.ErrEmptyVisitorID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.visitors[id]; ok {
		return v, nil
	}
	v := models.Visitor{ID: id, CreatedAt: time.Now().UTC()}
	s.visitors[id] = v
	return v, nil
}

// GetVisitor returns nil without error when the visitor is unknown.
func (s *InMemoryStore) GetVisitor(id string) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// MarkVisited sets the flag once; later calls keep the first completion time.
func (s *InMemoryStore) MarkVisited(id string, at time.Time) (models.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[id]
	if !ok {
		return models.Visitor{}, fmt.Errorf("mark visited %s: %w", id, models.ErrVisitorNotFound)
	}
	if !v.Visited {
		at = at.UTC()
		v.Visited = true
		v.CompletedAt = &at
		s.visitors[id] = v
	}
	return v, nil
}

// PruneVisitors deletes visitors created before cutoff that never reached the letter.
func (s *InMemoryStore) PruneVisitors(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.visitors {
		if !v.Visited && v.CreatedAt.Before(cutoff) {
			delete(s.visitors, id)
			n++
		}
	}
	return n, nil
}

// VisitorIDs lists known visitor IDs in sorted order (for tests and diagnostics).
func (s *InMemoryStore) VisitorIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.visitors))
	for id := range s.visitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *InMemoryStore) Close() error { return nil }
