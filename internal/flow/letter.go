package flow

import (
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/models"
)

// LetterPhase is the state of the envelope on the letter layer.
type LetterPhase string

const (
	LetterClosed   LetterPhase = "closed"
	LetterFlashing LetterPhase = "flashing"
	LetterOpened   LetterPhase = "opened"
)

// LetterStep is the final step. A trigger runs the flashback over the memory
// collection, opens the letter for good and types it out. The voice note player
// shows up after an estimate of the reading time.
type LetterStep struct {
	cfg      LetterConfig
	memories []models.MemoryItem
	ctx      *StepContext

	phase         LetterPhase
	flashes       int
	flashID       string
	writer        *Typewriter
	playerVisible bool
}

func NewLetterStep(cfg LetterConfig, memories []models.MemoryItem) *LetterStep {
	return &LetterStep{
		cfg:      cfg,
		memories: memories,
		phase:    LetterClosed,
		writer:   NewTypewriter(cfg.Lines, cfg.TypeInterval, cfg.LinePause),
	}
}

func (l *LetterStep) ID() models.StepID { return models.StepLetter }

func (l *LetterStep) Enter(ctx *StepContext) {
	l.ctx = ctx
}

// Trigger starts the flashback. Repeat triggers are ignored.
func (l *LetterStep) Trigger() {
	if l.phase != LetterClosed {
		slog.Debug("LetterStep.Trigger: ignored", "phase", l.phase)
		return
	}
	total := len(l.memories) * l.cfg.FlashCycles
	if total == 0 {
		l.open()
		return
	}
	l.phase = LetterFlashing
	l.flashID = l.ctx.Scope.Every(l.cfg.FlashInterval, func() {
		l.flashes++
		if l.flashes >= total {
			l.ctx.Scope.Cancel(l.flashID)
			l.open()
		}
	})
	slog.Info("LetterStep: flashback started", "frames", total)
}

func (l *LetterStep) open() {
	if l.phase == LetterOpened {
		return
	}
	l.phase = LetterOpened
	l.writer.Start(l.ctx.Scope.Child("typewriter"), func() {
		slog.Debug("LetterStep: letter fully typed", "lines", len(l.cfg.Lines))
	})
	l.ctx.Scope.After(l.PlayerDelay(), func() {
		l.playerVisible = true
		slog.Debug("LetterStep: voice player visible")
	})
	slog.Info("LetterStep: letter opened")
}

// PlayerDelay estimates how long the letter takes to read.
func (l *LetterStep) PlayerDelay() time.Duration {
	return time.Duration(len(l.cfg.Lines))*l.cfg.PlayerPerLine + l.cfg.PlayerExtraDelay
}

// Click opens a closed letter, or toggles the voice note once the player is shown.
func (l *LetterStep) Click() {
	switch {
	case l.phase == LetterClosed:
		l.Trigger()
	case l.playerVisible:
		l.ToggleVoice()
	}
}

// ToggleVoice starts or stops the voice note. It does nothing until the player is visible.
func (l *LetterStep) ToggleVoice() {
	if !l.playerVisible {
		return
	}
	if l.ctx.Audio.VoicePlaying() {
		l.ctx.Audio.StopVoice()
		return
	}
	l.ctx.Audio.PlayVoice()
}

// Leave stops the voice note so it does not outlive the letter.
func (l *LetterStep) Leave() {
	if l.ctx != nil && l.ctx.Audio.VoicePlaying() {
		l.ctx.Audio.StopVoice()
	}
}

func (l *LetterStep) Phase() LetterPhase      { return l.phase }
func (l *LetterStep) PlayerVisible() bool     { return l.playerVisible }
func (l *LetterStep) Typewriter() *Typewriter { return l.writer }
func (l *LetterStep) FlashFrames() int        { return l.flashes }

// FlashItem returns the memory shown by the flashback right now.
func (l *LetterStep) FlashItem() (models.MemoryItem, bool) {
	if l.phase != LetterFlashing || len(l.memories) == 0 {
		return models.MemoryItem{}, false
	}
	return l.memories[l.flashes%len(l.memories)], true
}
