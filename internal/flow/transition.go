package flow

import (
	"log/slog"

	"github.com/nampox/reveal/internal/clock"
)

// TransitionPhase is the state of the overlay shown while changing layers.
type TransitionPhase string

const (
	TransitionIdle     TransitionPhase = "idle"
	TransitionEntering TransitionPhase = "entering"
	TransitionShowing  TransitionPhase = "showing"
	TransitionLeaving  TransitionPhase = "leaving"
)

// Transition runs the layer-change overlay: it slides in, shows the mark, calls
// onMiddle while the screen is covered, then slides out and calls onDone.
type Transition struct {
	cfg   TransitionConfig
	sched clock.Scheduler
	scope *clock.Scope
	phase TransitionPhase
}

// NewTransition creates an idle transition.
func NewTransition(sched clock.Scheduler, cfg TransitionConfig) *Transition {
	return &Transition{cfg: cfg, sched: sched, phase: TransitionIdle}
}

// Phase returns the current overlay phase.
func (t *Transition) Phase() TransitionPhase { return t.phase }

// Active reports whether a transition is running.
func (t *Transition) Active() bool { return t.phase != TransitionIdle }

// Start begins the sequence. It returns false if one is already running.
func (t *Transition) Start(onMiddle, onDone func()) bool {
	if t.Active() {
		slog.Debug("Transition.Start: already running", "phase", t.phase)
		return false
	}
	t.scope = clock.NewScope(t.sched, "transition")
	t.phase = TransitionEntering

	t.scope.After(t.cfg.Showing, func() { t.phase = TransitionShowing })
	t.scope.After(t.cfg.Middle, func() {
		if onMiddle != nil {
			onMiddle()
		}
	})
	t.scope.After(t.cfg.Leaving, func() { t.phase = TransitionLeaving })
	t.scope.After(t.cfg.Done, func() {
		t.phase = TransitionIdle
		t.scope.Release()
		if onDone != nil {
			onDone()
		}
	})
	return true
}

// Cancel abandons a running transition without calling its callbacks.
func (t *Transition) Cancel() {
	if t.scope != nil {
		t.scope.Release()
	}
	t.phase = TransitionIdle
}
