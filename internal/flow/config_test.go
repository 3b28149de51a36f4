package flow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeChoreography(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "choreography.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write choreography: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default choreography invalid: %v", err)
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hold.Total != 3*time.Second || cfg.Wipe.Threshold != 0.55 {
		t.Errorf("expected defaults, got hold=%v threshold=%v", cfg.Hold.Total, cfg.Wipe.Threshold)
	}
}

func TestLoadConfig_OverridesOnlyGivenFields(t *testing.T) {
	path := writeChoreography(t, `
hold:
  total: 2s
wipe:
  method: average
  threshold: 0.4
letter:
  lines:
    - "Em ơi,"
    - "Happy Valentine's Day."
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hold.Total != 2*time.Second {
		t.Errorf("expected hold total 2s, got %v", cfg.Hold.Total)
	}
	if cfg.Hold.Silent != 500*time.Millisecond || cfg.Hold.Settle != time.Second {
		t.Errorf("expected untouched hold fields to keep defaults, got %+v", cfg.Hold)
	}
	if cfg.Wipe.Method != WipeMethodAverage || cfg.Wipe.Threshold != 0.4 {
		t.Errorf("expected average method at 0.4, got %s at %v", cfg.Wipe.Method, cfg.Wipe.Threshold)
	}
	if cfg.Wipe.Width != 320 {
		t.Errorf("expected default width, got %d", cfg.Wipe.Width)
	}
	if len(cfg.Letter.Lines) != 2 || cfg.Letter.Lines[0] != "Em ơi," {
		t.Errorf("unexpected letter lines %q", cfg.Letter.Lines)
	}
	if len(cfg.Timeline.Milestones) != 4 {
		t.Errorf("expected default milestones, got %d", len(cfg.Timeline.Milestones))
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"silent longer than hold", "hold:\n  total: 2s\n  silent: 2500ms\n", ErrInvalidHold},
		{"threshold above one", "wipe:\n  threshold: 1.5\n", ErrInvalidThreshold},
		{"unknown method", "wipe:\n  method: luminance\n", ErrInvalidWipeMethod},
		{"no milestones", "timeline:\n  milestones: []\n", ErrNoMilestones},
		{"transition out of order", "transition:\n  middle: 2s\n", ErrInvalidTransition},
		{"duck factor", "audio:\n  duck_factor: 2\n", ErrInvalidAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeChoreography(t, tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig_MissingAndMalformed(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := LoadConfig(writeChoreography(t, "hold: [unterminated")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLoadConfig_InvalidMilestoneInteraction(t *testing.T) {
	path := writeChoreography(t, `
timeline:
  milestones:
    - text: "Only one"
      interaction: swipe
      min_dwell: 1s
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an invalid interaction to be rejected")
	}
}
