// Package models defines flow type definitions to avoid circular imports.
package models

import "time"

// StepID identifies a step of the reveal flow
type StepID string

// Layer identifies which surface of the experience is showing
type Layer string

// Interaction is how a timeline milestone is passed
type Interaction string

// Mood tags a milestone with the atmosphere it sets
type Mood string

// Step constants in flow order.
const (
	StepWelcome  StepID = "WELCOME"  // Welcome-back interstitial, only for returning visitors
	StepHold     StepID = "HOLD"     // Press-and-hold the envelope
	StepWipe     StepID = "WIPE"     // Wipe the mist away
	StepGallery  StepID = "GALLERY"  // Memory gallery
	StepTimeline StepID = "TIMELINE" // Milestone timeline ending in void mode
	StepLetter   StepID = "LETTER"   // Flashback, letter and voice note (terminal)
)

// Layer constants.
const (
	LayerOpening Layer = "opening"
	LayerLetter  Layer = "letter"
)

// Interaction constants.
const (
	InteractionScroll Interaction = "scroll"
	InteractionHold   Interaction = "hold"
)

// Mood constants.
const (
	MoodCalm      Mood = "calm"
	MoodWarm      Mood = "warm"
	MoodNostalgic Mood = "nostalgic"
	MoodDark      Mood = "dark"
)

// Layer returns the layer a step is rendered on.
func (s StepID) Layer() Layer {
	if s == StepLetter {
		return LayerLetter
	}
	return LayerOpening
}

// IsValidInteraction checks if the given interaction kind is supported.
func IsValidInteraction(i Interaction) bool {
	switch i {
	case InteractionScroll, InteractionHold:
		return true
	default:
		return false
	}
}

// Milestone is one entry of the timeline step.
type Milestone struct {
	Text        string        `json:"text" yaml:"text"`
	Subtext     string        `json:"subtext,omitempty" yaml:"subtext,omitempty"`
	Mood        Mood          `json:"mood,omitempty" yaml:"mood,omitempty"`
	Interaction Interaction   `json:"interaction" yaml:"interaction"`
	MinDwell    time.Duration `json:"min_dwell" yaml:"min_dwell"` // Lock window before forward navigation is allowed
}

// MemoryItem is one picture shared by the gallery and the flashback.
type MemoryItem struct {
	ID      string `json:"id" yaml:"id"`
	Media   string `json:"media" yaml:"media"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}
