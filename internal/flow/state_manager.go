package flow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/store"
)

// VisitMarker persists the single "has completed the flow" flag.
type VisitMarker interface {
	HasVisited() (bool, error)
	MarkVisited(at time.Time) error
}

// MemoryMarker keeps the flag for the process lifetime only.
type MemoryMarker struct {
	visited bool
}

func (m *MemoryMarker) HasVisited() (bool, error) { return m.visited, nil }

func (m *MemoryMarker) MarkVisited(time.Time) error {
	m.visited = true
	return nil
}

// StoreBasedMarker implements VisitMarker for one visitor of a Store backend.
type StoreBasedMarker struct {
	store     store.Store
	visitorID string
}

// NewStoreBasedMarker creates a VisitMarker backed by a Store.
func NewStoreBasedMarker(st store.Store, visitorID string) *StoreBasedMarker {
	slog.Debug("Creating StoreBasedMarker", "visitorID", visitorID)
	return &StoreBasedMarker{store: st, visitorID: visitorID}
}

// HasVisited reports the stored flag. An unknown visitor has not visited.
func (m *StoreBasedMarker) HasVisited() (bool, error) {
	v, err := m.store.GetVisitor(m.visitorID)
	if err != nil {
		slog.Error("StoreBasedMarker HasVisited error", "error", err, "visitorID", m.visitorID)
		return false, err
	}
	if v == nil {
		slog.Debug("StoreBasedMarker HasVisited not found", "visitorID", m.visitorID)
		return false, nil
	}
	return v.Visited, nil
}

// MarkVisited creates the visitor if needed, then sets the flag.
func (m *StoreBasedMarker) MarkVisited(at time.Time) error {
	if _, err := m.store.CreateVisitor(m.visitorID); err != nil {
		slog.Error("StoreBasedMarker MarkVisited create error", "error", err, "visitorID", m.visitorID)
		return fmt.Errorf("create visitor %s: %w", m.visitorID, err)
	}
	if _, err := m.store.MarkVisited(m.visitorID, at); err != nil {
		slog.Error("StoreBasedMarker MarkVisited error", "error", err, "visitorID", m.visitorID)
		return err
	}
	slog.Info("StoreBasedMarker MarkVisited succeeded", "visitorID", m.visitorID)
	return nil
}
