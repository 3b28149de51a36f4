package flow

import (
	"log/slog"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/models"
)

// Step is one screen of the reveal flow. A fresh Step is built every time the
// orchestrator enters it, so transient state never survives a re-entry.
type Step interface {
	ID() models.StepID
	Enter(ctx *StepContext)
}

// Leaver is implemented by steps that must undo side effects when torn down.
type Leaver interface {
	Leave()
}

// Input capabilities. The orchestrator forwards an input only to an active
// step that implements the matching interface.
type (
	Presser interface {
		Press()
		Release()
	}
	Mover interface {
		Move(x, y float64)
	}
	Scroller interface {
		Scroll(delta float64)
	}
	Clicker interface {
		Click()
	}
	Triggerer interface {
		Trigger()
	}
)

// AudioRequester is the only audio surface a step sees. Volume stays with the
// orchestrator-level controller.
type AudioRequester interface {
	PlayMusic()
	PauseMusic()
	PlayVoice()
	StopVoice()
	VoicePlaying() bool
}

// StepContext is what the orchestrator hands a step on entry.
type StepContext struct {
	Scope *clock.Scope
	Audio AudioRequester

	step     models.StepID
	complete func(models.StepID)
	setWarm  func(bool)
}

// Complete reports the step as finished. Calls after the step was torn down,
// or repeated calls, are absorbed by the orchestrator's step-identity guard.
func (c *StepContext) Complete() {
	if c.Scope.Released() {
		slog.Debug("StepContext.Complete: ignored on released step", "step", c.step)
		return
	}
	c.complete(c.step)
}

// SetWarm asks the orchestrator to change warm mode.
func (c *StepContext) SetWarm(warm bool) {
	if c.Scope.Released() {
		return
	}
	c.setWarm(warm)
}

// silentAudio is used when no audio controller is wired.
type silentAudio struct{}

func (silentAudio) PlayMusic()         {}
func (silentAudio) PauseMusic()        {}
func (silentAudio) PlayVoice()         {}
func (silentAudio) StopVoice()         {}
func (silentAudio) VoicePlaying() bool { return false }
