// Package flow implements the reveal flow: the orchestrator, its steps and the
// timing rules that gate them.
package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/models"
)

// WipeMethod selects how cleared coverage is estimated from the sampled alpha values.
type WipeMethod string

const (
	// WipeMethodRatio counts sampled pixels whose alpha is below the cutoff.
	WipeMethodRatio WipeMethod = "ratio"
	// WipeMethodAverage uses one minus the mean sampled alpha.
	WipeMethodAverage WipeMethod = "average"
)

// HoldConfig times the envelope press.
type HoldConfig struct {
	Total  time.Duration `yaml:"total" json:"total"`   // Full press duration T
	Silent time.Duration `yaml:"silent" json:"silent"` // Leading part of T without visible progress
	Settle time.Duration `yaml:"settle" json:"settle"` // Delay between HeldEnough and completion
}

// WipeConfig tunes the mist surface and its coverage sampling.
type WipeConfig struct {
	Width        int           `yaml:"width" json:"width"`
	Height       int           `yaml:"height" json:"height"`
	BrushRadius  float64       `yaml:"brush_radius" json:"brush_radius"`
	SampleEvery  int           `yaml:"sample_every" json:"sample_every"` // Frames between coverage samples
	Stride       int           `yaml:"stride" json:"stride"`             // Pixel stride inside the sample region
	RegionMargin float64       `yaml:"region_margin" json:"region_margin"`
	AlphaCutoff  uint8         `yaml:"alpha_cutoff" json:"alpha_cutoff"`
	Threshold    float64       `yaml:"threshold" json:"threshold"`
	Method       WipeMethod    `yaml:"method" json:"method"`
	FadeOut      time.Duration `yaml:"fade_out" json:"fade_out"`
}

// GalleryConfig paces the memory gallery.
type GalleryConfig struct {
	FadeInDelay time.Duration `yaml:"fade_in_delay" json:"fade_in_delay"`
	MinDwell    time.Duration `yaml:"min_dwell" json:"min_dwell"`
}

// ChargeConfig sets hold-to-charge rates, in progress units per second.
type ChargeConfig struct {
	RiseRate float64 `yaml:"rise_rate" json:"rise_rate"`
	FallRate float64 `yaml:"fall_rate" json:"fall_rate"`
}

// VoidConfig times the blackout that closes the timeline.
type VoidConfig struct {
	Message     string        `yaml:"message" json:"message"`
	Blackout    time.Duration `yaml:"blackout" json:"blackout"`
	MessageHold time.Duration `yaml:"message_hold" json:"message_hold"`
	Tail        time.Duration `yaml:"tail" json:"tail"`
}

// TimelineConfig paces the milestone sequence.
type TimelineConfig struct {
	Milestones      []models.Milestone `yaml:"milestones" json:"milestones"`
	SubtextDelay    time.Duration      `yaml:"subtext_delay" json:"subtext_delay"`
	IndicatorDelay  time.Duration      `yaml:"indicator_delay" json:"indicator_delay"`
	ScrollThreshold float64            `yaml:"scroll_threshold" json:"scroll_threshold"`
	Charge          ChargeConfig       `yaml:"charge" json:"charge"`
	Void            VoidConfig         `yaml:"void" json:"void"`
}

// LetterConfig times the flashback, typewriter and audio player reveal.
type LetterConfig struct {
	Lines            []string      `yaml:"lines" json:"lines"`
	FlashInterval    time.Duration `yaml:"flash_interval" json:"flash_interval"`
	FlashCycles      int           `yaml:"flash_cycles" json:"flash_cycles"`
	TypeInterval     time.Duration `yaml:"type_interval" json:"type_interval"`
	LinePause        time.Duration `yaml:"line_pause" json:"line_pause"`
	PlayerPerLine    time.Duration `yaml:"player_per_line" json:"player_per_line"`
	PlayerExtraDelay time.Duration `yaml:"player_extra_delay" json:"player_extra_delay"`
}

// AudioConfig tunes background ducking.
type AudioConfig struct {
	Baseline   float64       `yaml:"baseline" json:"baseline"`
	DuckFactor float64       `yaml:"duck_factor" json:"duck_factor"`
	Ramp       time.Duration `yaml:"ramp" json:"ramp"`
	RampSteps  int           `yaml:"ramp_steps" json:"ramp_steps"`
}

// TransitionConfig times the layer change overlay. Zero Middle swaps immediately.
type TransitionConfig struct {
	Showing time.Duration `yaml:"showing" json:"showing"`
	Middle  time.Duration `yaml:"middle" json:"middle"`
	Leaving time.Duration `yaml:"leaving" json:"leaving"`
	Done    time.Duration `yaml:"done" json:"done"`
}

// Config is the whole choreography. Every field has a default.
type Config struct {
	FrameInterval  time.Duration       `yaml:"frame_interval" json:"frame_interval"`
	WelcomeMessage string              `yaml:"welcome_message" json:"welcome_message"`
	WelcomeDelay   time.Duration       `yaml:"welcome_delay" json:"welcome_delay"`
	Memories       []models.MemoryItem `yaml:"memories" json:"memories"`
	Hold           HoldConfig          `yaml:"hold" json:"hold"`
	Wipe           WipeConfig          `yaml:"wipe" json:"wipe"`
	Gallery        GalleryConfig       `yaml:"gallery" json:"gallery"`
	Timeline       TimelineConfig      `yaml:"timeline" json:"timeline"`
	Letter         LetterConfig        `yaml:"letter" json:"letter"`
	Audio          AudioConfig         `yaml:"audio" json:"audio"`
	Transition     TransitionConfig    `yaml:"transition" json:"transition"`
}

// DefaultConfig returns the canonical choreography.
func DefaultConfig() Config {
	return Config{
		FrameInterval:  clock.DefaultFrameInterval,
		WelcomeMessage: "Welcome back. It is still here for you.",
		WelcomeDelay:   2500 * time.Millisecond,
		Memories: []models.MemoryItem{
			{ID: "m1", Media: "memories/first-coffee.jpg", Caption: "The first coffee"},
			{ID: "m2", Media: "memories/rainy-walk.jpg", Caption: "Walking home in the rain"},
			{ID: "m3", Media: "memories/seaside.jpg", Caption: "The seaside weekend"},
			{ID: "m4", Media: "memories/lanterns.jpg", Caption: "Lantern night"},
			{ID: "m5", Media: "memories/kitchen.jpg", Caption: "Burnt pancakes"},
			{ID: "m6", Media: "memories/sunrise.jpg", Caption: "That sunrise"},
		},
		Hold: HoldConfig{
			Total:  3000 * time.Millisecond,
			Silent: 500 * time.Millisecond,
			Settle: 1000 * time.Millisecond,
		},
		Wipe: WipeConfig{
			Width:        320,
			Height:       180,
			BrushRadius:  18,
			SampleEvery:  10,
			Stride:       4,
			RegionMargin: 0.2,
			AlphaCutoff:  128,
			Threshold:    0.55,
			Method:       WipeMethodRatio,
			FadeOut:      1200 * time.Millisecond,
		},
		Gallery: GalleryConfig{
			FadeInDelay: 600 * time.Millisecond,
			MinDwell:    4 * time.Second,
		},
		Timeline: TimelineConfig{
			Milestones: []models.Milestone{
				{Text: "The day we met", Subtext: "You laughed at my terrible joke.", Mood: models.MoodCalm, Interaction: models.InteractionScroll, MinDwell: 2500 * time.Millisecond},
				{Text: "Our first trip", Subtext: "We got lost and did not mind.", Mood: models.MoodNostalgic, Interaction: models.InteractionScroll, MinDwell: 2500 * time.Millisecond},
				{Text: "The hard winter", Subtext: "Hold on, like we did.", Mood: models.MoodDark, Interaction: models.InteractionHold, MinDwell: 3 * time.Second},
				{Text: "Still here", Subtext: "Every day since.", Mood: models.MoodWarm, Interaction: models.InteractionScroll, MinDwell: 2500 * time.Millisecond},
			},
			SubtextDelay:    700 * time.Millisecond,
			IndicatorDelay:  900 * time.Millisecond,
			ScrollThreshold: 50,
			Charge:          ChargeConfig{RiseRate: 0.5, FallRate: 0.8},
			Void: VoidConfig{
				Message:     "And then, there was you.",
				Blackout:    1500 * time.Millisecond,
				MessageHold: 3 * time.Second,
				Tail:        1 * time.Second,
			},
		},
		Letter: LetterConfig{
			Lines: []string{
				"My love,",
				"Every small moment with you became a memory I keep.",
				"Thank you for staying through every season.",
				"Happy Valentine's Day.",
			},
			FlashInterval:    120 * time.Millisecond,
			FlashCycles:      2,
			TypeInterval:     45 * time.Millisecond,
			LinePause:        600 * time.Millisecond,
			PlayerPerLine:    2500 * time.Millisecond,
			PlayerExtraDelay: 1 * time.Second,
		},
		Audio: AudioConfig{
			Baseline:   0.5,
			DuckFactor: 0.2,
			Ramp:       800 * time.Millisecond,
			RampSteps:  20,
		},
		Transition: TransitionConfig{
			Showing: 550 * time.Millisecond,
			Middle:  700 * time.Millisecond,
			Leaving: 1200 * time.Millisecond,
			Done:    1800 * time.Millisecond,
		},
	}
}

// Validation errors for Config
var (
	ErrInvalidHold       = errors.New("hold silent phase must be shorter than the total press")
	ErrInvalidThreshold  = errors.New("wipe threshold must be in (0, 1]")
	ErrInvalidWipeMethod = errors.New("unknown wipe method")
	ErrInvalidSurface    = errors.New("wipe surface size and sampling must be positive")
	ErrNoMilestones      = errors.New("timeline needs at least one milestone")
	ErrInvalidCharge     = errors.New("charge rates must be positive")
	ErrInvalidTransition = errors.New("transition phases must be ordered")
	ErrInvalidAudio      = errors.New("audio levels must be in [0, 1] with at least one ramp step")
	ErrNoMemories        = errors.New("at least one memory item is required")
)

// Validate rejects configurations no flow could run with.
func (c Config) Validate() error {
	if c.Hold.Total <= 0 || c.Hold.Silent < 0 || c.Hold.Silent >= c.Hold.Total {
		return ErrInvalidHold
	}
	if c.Wipe.Threshold <= 0 || c.Wipe.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if c.Wipe.Method != WipeMethodRatio && c.Wipe.Method != WipeMethodAverage {
		return fmt.Errorf("%w: %q", ErrInvalidWipeMethod, c.Wipe.Method)
	}
	if c.Wipe.Width <= 0 || c.Wipe.Height <= 0 || c.Wipe.Stride <= 0 || c.Wipe.SampleEvery <= 0 ||
		c.Wipe.RegionMargin < 0 || c.Wipe.RegionMargin >= 0.5 {
		return ErrInvalidSurface
	}
	if len(c.Timeline.Milestones) == 0 {
		return ErrNoMilestones
	}
	for i, m := range c.Timeline.Milestones {
		if !models.IsValidInteraction(m.Interaction) {
			return fmt.Errorf("milestone %d: invalid interaction %q", i, m.Interaction)
		}
	}
	if c.Timeline.Charge.RiseRate <= 0 || c.Timeline.Charge.FallRate <= 0 {
		return ErrInvalidCharge
	}
	t := c.Transition
	if t.Middle > 0 && !(t.Showing <= t.Middle && t.Middle <= t.Leaving && t.Leaving <= t.Done) {
		return ErrInvalidTransition
	}
	a := c.Audio
	if a.Baseline < 0 || a.Baseline > 1 || a.DuckFactor < 0 || a.DuckFactor > 1 || a.RampSteps < 1 {
		return ErrInvalidAudio
	}
	if len(c.Memories) == 0 {
		return ErrNoMemories
	}
	return nil
}

// LoadConfig reads a YAML choreography file over the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read choreography %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse choreography %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid choreography %s: %w", path, err)
	}
	slog.Debug("LoadConfig: choreography loaded", "path", path,
		"milestones", len(cfg.Timeline.Milestones), "memories", len(cfg.Memories), "lines", len(cfg.Letter.Lines))
	return cfg, nil
}
