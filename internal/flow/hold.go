package flow

import (
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/models"
)

// HoldPhase is the state of the envelope press.
type HoldPhase string

const (
	HoldIdle          HoldPhase = "idle"
	HoldPressing      HoldPhase = "pressing"
	HoldHeldEnough    HoldPhase = "held_enough"
	HoldReleasedEarly HoldPhase = "released_early"
	HoldCompleted     HoldPhase = "completed"
)

// HoldStep requires one continuous press of cfg.Total. Progress stays at zero
// for the silent part of the press, then ramps to one. Releasing early throws
// all progress away.
type HoldStep struct {
	cfg   HoldConfig
	frame time.Duration
	ctx   *StepContext

	phase     HoldPhase
	progress  float64
	pressedAt time.Time
	frameID   string
	heldID    string
	attempts  int
}

// NewHoldStep creates an idle hold step.
func NewHoldStep(cfg HoldConfig, frame time.Duration) *HoldStep {
	return &HoldStep{cfg: cfg, frame: frame, phase: HoldIdle}
}

func (h *HoldStep) ID() models.StepID { return models.StepHold }

func (h *HoldStep) Enter(ctx *StepContext) {
	h.ctx = ctx
}

// Press starts a new attempt. Presses while one is running or after the hold
// succeeded are ignored, so a bouncing pointer cannot restart the step.
func (h *HoldStep) Press() {
	if h.phase != HoldIdle && h.phase != HoldReleasedEarly {
		slog.Debug("HoldStep.Press: ignored", "phase", h.phase)
		return
	}
	h.attempts++
	h.phase = HoldPressing
	h.progress = 0
	h.pressedAt = h.ctx.Scope.Now()
	h.frameID = h.ctx.Scope.Every(h.frame, h.tick)
	h.heldID = h.ctx.Scope.After(h.cfg.Total, h.heldEnough)
	slog.Debug("HoldStep.Press: pressing", "attempt", h.attempts)
}

// Release abandons a running attempt.
func (h *HoldStep) Release() {
	if h.phase != HoldPressing {
		return
	}
	held := h.ctx.Scope.Now().Sub(h.pressedAt)
	h.ctx.Scope.Cancel(h.frameID)
	h.ctx.Scope.Cancel(h.heldID)
	h.frameID, h.heldID = "", ""
	h.progress = 0
	h.phase = HoldReleasedEarly
	slog.Debug("HoldStep.Release: released too early", "held", held, "required", h.cfg.Total)
}

func (h *HoldStep) tick() {
	if h.phase != HoldPressing {
		return
	}
	h.progress = h.visibleProgress(h.ctx.Scope.Now().Sub(h.pressedAt))
}

// visibleProgress maps elapsed press time onto [0,1].
func (h *HoldStep) visibleProgress(elapsed time.Duration) float64 {
	if elapsed <= h.cfg.Silent {
		return 0
	}
	ramp := h.cfg.Total - h.cfg.Silent
	p := float64(elapsed-h.cfg.Silent) / float64(ramp)
	if p > 1 {
		return 1
	}
	return p
}

func (h *HoldStep) heldEnough() {
	if h.phase != HoldPressing {
		return
	}
	h.ctx.Scope.Cancel(h.frameID)
	h.frameID, h.heldID = "", ""
	h.progress = 1
	h.phase = HoldHeldEnough
	slog.Info("HoldStep: held long enough", "attempts", h.attempts)

	h.ctx.Scope.After(h.cfg.Settle, func() {
		if h.phase != HoldHeldEnough {
			return
		}
		h.phase = HoldCompleted
		h.ctx.Complete()
	})
}

// Phase returns the current press state.
func (h *HoldStep) Phase() HoldPhase { return h.phase }

// Progress returns the visible progress in [0,1].
func (h *HoldStep) Progress() float64 { return h.progress }

// Attempts returns how many presses were started.
func (h *HoldStep) Attempts() int { return h.attempts }
