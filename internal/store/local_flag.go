package store

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/nampox/reveal/internal/models"
)

// localFlagRecord is the YAML payload stored under the visited key.
type localFlagRecord struct {
	Visited     bool      `yaml:"visited"`
	CompletedAt time.Time `yaml:"completedAt,omitempty"`
}

// LocalFlag keeps the visited flag on the visitor's own machine, the way a browser
// keeps it in localStorage. A nil manager runs in degraded mode: the flag lives in
// memory for the process lifetime only.
type LocalFlag struct {
	manager *gdata.Manager
	object  string
	prop    string
	memory  bool
}

// OpenLocalFlag opens the per-user data directory for appName. If the directory
// cannot be opened the returned flag is still usable in degraded mode and the
// error is returned for logging.
func OpenLocalFlag(appName string) (*LocalFlag, error) {
	object, prop := splitVisitedKey(models.VisitedKey)
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		slog.Warn("OpenLocalFlag: gdata unavailable, using memory only", "error", err, "app", appName)
		return &LocalFlag{object: object, prop: prop}, fmt.Errorf("open local data for %s: %w", appName, err)
	}
	return NewLocalFlag(m), nil
}

// NewLocalFlag wraps an already opened manager. m may be nil.
func NewLocalFlag(m *gdata.Manager) *LocalFlag {
	object, prop := splitVisitedKey(models.VisitedKey)
	return &LocalFlag{manager: m, object: object, prop: prop}
}

// HasVisited reads the flag. A missing entry means first visit.
func (f *LocalFlag) HasVisited() (bool, error) {
	if f.manager == nil {
		return f.memory, nil
	}
	if !f.manager.ObjectPropExists(f.object, f.prop) {
		return false, nil
	}
	data, err := f.manager.LoadObjectProp(f.object, f.prop)
	if err != nil {
		return false, fmt.Errorf("failed to load visited flag: %w", err)
	}
	var rec localFlagRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("failed to unmarshal visited flag: %w", err)
	}
	return rec.Visited, nil
}

// MarkVisited sets the flag.
func (f *LocalFlag) MarkVisited(at time.Time) error {
	return f.write(localFlagRecord{Visited: true, CompletedAt: at.UTC()})
}

// Reset clears the flag so the next run behaves like a first visit.
func (f *LocalFlag) Reset() error {
	return f.write(localFlagRecord{})
}

func (f *LocalFlag) write(rec localFlagRecord) error {
	if f.manager == nil {
		f.memory = rec.Visited
		return nil
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal visited flag: %w", err)
	}
	if err := f.manager.SaveObjectProp(f.object, f.prop, data); err != nil {
		return fmt.Errorf("failed to save visited flag: %w", err)
	}
	slog.Debug("LocalFlag saved", "object", f.object, "prop", f.prop, "visited", rec.Visited)
	return nil
}

// splitVisitedKey maps "object.prop" onto gdata's object/property layout.
func splitVisitedKey(key string) (string, string) {
	if i := strings.IndexByte(key, '.'); i > 0 {
		return key[:i], key[i+1:]
	}
	return key, "value"
}
