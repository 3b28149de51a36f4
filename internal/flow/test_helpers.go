package flow

import (
	"github.com/nampox/reveal/internal/store"
)

// NewMockVisitMarker creates a store-backed visit marker for testing
func NewMockVisitMarker() VisitMarker {
	return NewStoreBasedMarker(store.NewInMemoryStore(), "test-visitor")
}
