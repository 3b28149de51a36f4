// Package player renders the reveal flow in a terminal and maps mouse and
// keyboard input onto orchestrator actions.
//
// All Player methods run on the scheduler's thread. Run wires tcell's event
// goroutine into a clock.Loop so that holds in production; tests drive
// HandleEvent and Draw directly under a clock.Manual.
package player

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/flow"
)

// WheelDelta is the scroll distance reported for one wheel notch or arrow key.
// It clears the default timeline scroll threshold.
const WheelDelta = 60

// VoiceState reports whether the voice note is playing, for the letter player line.
type VoiceState interface {
	VoicePlaying() bool
}

// Player owns the terminal screen for the lifetime of one flow.
type Player struct {
	screen tcell.Screen
	orch   *flow.Orchestrator
	cfg    flow.Config
	voice  VoiceState
	debug  bool
	timers func() int

	pressed bool
	frames  int
}

// Option configures a Player.
type Option func(*Player)

// WithVoiceState lets the letter screen show whether the voice note is playing.
func WithVoiceState(v VoiceState) Option {
	return func(p *Player) { p.voice = v }
}

// WithDebug adds the pending timer count to the status line. Under Run this
// counts every live timer of the loop, not only the active step's.
func WithDebug() Option {
	return func(p *Player) { p.debug = true }
}

// New creates a player over an initialised screen.
func New(screen tcell.Screen, orch *flow.Orchestrator, cfg flow.Config, opts ...Option) *Player {
	p := &Player{screen: screen, orch: orch, cfg: cfg}
	p.timers = orch.Pending
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the flow and serves input and frames until ctx is cancelled or
// the user quits. The screen is left initialised; the caller owns Fini.
func (p *Player) Run(ctx context.Context, loop *clock.Loop) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.timers = func() int { return len(loop.ListActive()) }
	p.screen.EnableMouse(tcell.MouseMotionEvents)
	p.screen.HideCursor()

	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			loop.Post(func() {
				if !p.HandleEvent(ev) {
					cancel()
				}
			})
		}
	}()

	loop.Post(func() {
		p.orch.Start()
		loop.Every(p.cfg.FrameInterval, p.Draw)
		p.Draw()
	})

	err := loop.Run(ctx)
	// The loop has stopped, so the orchestrator can be closed from here.
	p.orch.Close()
	slog.Info("Player.Run: stopped", "step", p.orch.State().Step, "frames", p.frames)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies one terminal event. It returns false when the user asked to quit.
func (p *Player) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.handleKey(ev)
	case *tcell.EventMouse:
		p.handleMouse(ev)
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return true
}

func (p *Player) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyEnter:
		p.orch.Click()
	case tcell.KeyDown, tcell.KeyPgDn:
		p.orch.Scroll(WheelDelta)
	case tcell.KeyUp, tcell.KeyPgUp:
		p.orch.Scroll(-WheelDelta)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 't':
			p.orch.Trigger()
		case 'v', ' ':
			p.orch.Click()
		case 'j':
			p.orch.Scroll(WheelDelta)
		case 'k':
			p.orch.Scroll(-WheelDelta)
		}
	}
	return true
}

// handleMouse turns button state changes into press/release pairs. A release
// also counts as a click.
func (p *Player) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()

	if buttons&tcell.WheelDown != 0 {
		p.orch.Scroll(WheelDelta)
	}
	if buttons&tcell.WheelUp != 0 {
		p.orch.Scroll(-WheelDelta)
	}

	down := buttons&tcell.Button1 != 0
	switch {
	case down && !p.pressed:
		p.pressed = true
		p.orch.Press()
	case !down && p.pressed:
		p.pressed = false
		p.orch.Release()
		p.orch.Click()
	}

	sx, sy := p.toSurface(x, y)
	p.orch.Move(sx, sy)
}

// toSurface maps a cell centre onto wipe surface coordinates.
func (p *Player) toSurface(x, y int) (float64, float64) {
	w, h := p.sceneSize()
	sx := (float64(x) + 0.5) / float64(w) * float64(p.cfg.Wipe.Width)
	sy := (float64(y) + 0.5) / float64(h) * float64(p.cfg.Wipe.Height)
	return sx, sy
}

// sceneSize is the screen minus the status line.
func (p *Player) sceneSize() (int, int) {
	w, h := p.screen.Size()
	if h > 1 {
		h--
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Frames returns how many frames were drawn.
func (p *Player) Frames() int { return p.frames }
