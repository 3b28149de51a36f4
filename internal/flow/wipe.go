package flow

import (
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/models"
)

// WipeStep reveals the content under an opaque mist. Coverage is sampled every
// SampleEvery frames on a stride grid inside the central region, trading
// precision for a bounded per-frame cost.
type WipeStep struct {
	cfg     WipeConfig
	frame   time.Duration
	surface Surface
	ctx     *StepContext

	frames   int
	samples  int
	skipped  int
	coverage float64
	locked   bool
	opacity  float64

	stroking bool
	lastX    float64
	lastY    float64
	frameID  string
}

// NewWipeStep creates a wipe step. A nil surface gets an opaque AlphaSurface of
// the configured size.
func NewWipeStep(cfg WipeConfig, frame time.Duration, surface Surface) *WipeStep {
	if surface == nil {
		surface = NewAlphaSurface(cfg.Width, cfg.Height)
	}
	return &WipeStep{cfg: cfg, frame: frame, surface: surface, opacity: 1}
}

func (w *WipeStep) ID() models.StepID { return models.StepWipe }

func (w *WipeStep) Enter(ctx *StepContext) {
	w.ctx = ctx
	w.frameID = ctx.Scope.Every(w.frame, w.onFrame)
}

// Press starts a stroke.
func (w *WipeStep) Press() {
	w.stroking = false
}

// Release ends the current stroke so the next move does not bridge the gap.
func (w *WipeStep) Release() {
	w.stroking = false
}

// Move erases along the pointer path. Input is rejected once the threshold is crossed.
func (w *WipeStep) Move(x, y float64) {
	if w.locked {
		return
	}
	if w.stroking {
		eraseLine(w.surface, w.lastX, w.lastY, x, y, w.cfg.BrushRadius)
	} else {
		w.surface.Erase(x, y, w.cfg.BrushRadius)
	}
	w.stroking = true
	w.lastX, w.lastY = x, y
}

func (w *WipeStep) onFrame() {
	if w.locked {
		return
	}
	w.frames++
	if w.frames%w.cfg.SampleEvery != 0 {
		return
	}
	w.sample()
}

func (w *WipeStep) sample() {
	region := sampleRegion(w.surface.Bounds(), w.cfg.RegionMargin)
	values, err := w.surface.Sample(region, w.cfg.Stride)
	if err != nil {
		w.skipped++
		slog.Debug("WipeStep: sample skipped", "error", err, "skipped", w.skipped)
		return
	}
	w.samples++
	fraction := clearedFraction(values, w.cfg.Method, w.cfg.AlphaCutoff)
	if fraction > w.coverage {
		w.coverage = fraction
	}
	if w.coverage >= w.cfg.Threshold {
		w.reveal()
	}
}

// reveal locks drawing, fades the mist out and then completes.
func (w *WipeStep) reveal() {
	w.locked = true
	w.ctx.Scope.Cancel(w.frameID)
	slog.Info("WipeStep: threshold crossed", "coverage", w.coverage, "samples", w.samples)

	start := w.ctx.Scope.Now()
	fadeID := w.ctx.Scope.Every(w.frame, func() {
		elapsed := w.ctx.Scope.Now().Sub(start)
		w.opacity = 1 - float64(elapsed)/float64(w.cfg.FadeOut)
		if w.opacity < 0 {
			w.opacity = 0
		}
	})
	w.ctx.Scope.After(w.cfg.FadeOut, func() {
		w.ctx.Scope.Cancel(fadeID)
		w.opacity = 0
		w.ctx.Complete()
	})
}

// Coverage returns the last sampled cleared fraction.
func (w *WipeStep) Coverage() float64 { return w.coverage }

// Opacity returns the mist layer opacity in [0,1].
func (w *WipeStep) Opacity() float64 { return w.opacity }

// Locked reports whether drawing has stopped.
func (w *WipeStep) Locked() bool { return w.locked }

// Surface returns the mist surface.
func (w *WipeStep) Surface() Surface { return w.surface }

// Samples returns the number of successful and skipped samples.
func (w *WipeStep) Samples() (ok, skipped int) { return w.samples, w.skipped }
