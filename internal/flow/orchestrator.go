package flow

import (
	"log/slog"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/models"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVisitMarker sets where the visited flag is read from and written to.
func WithVisitMarker(m VisitMarker) Option {
	return func(o *Orchestrator) { o.marker = m }
}

// WithAudio wires the orchestrator-level audio controller.
func WithAudio(a AudioRequester) Option {
	return func(o *Orchestrator) { o.audio = a }
}

// WithListener registers a callback invoked after every state change.
func WithListener(fn func(models.FlowState)) Option {
	return func(o *Orchestrator) { o.listeners = append(o.listeners, fn) }
}

// Orchestrator owns the FlowState and the single active step. All methods must
// be called from the scheduler's thread.
type Orchestrator struct {
	cfg        Config
	sched      clock.Scheduler
	marker     VisitMarker
	audio      AudioRequester
	listeners  []func(models.FlowState)
	transition *Transition

	steps   []models.StepID
	index   int
	state   models.FlowState
	active  Step
	scope   *clock.Scope
	history []models.StateTransition
	started bool
	closed  bool
}

// NewOrchestrator creates an orchestrator. Nothing runs until Start.
func NewOrchestrator(sched clock.Scheduler, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		sched:      sched,
		marker:     &MemoryMarker{},
		audio:      silentAudio{},
		transition: NewTransition(sched, cfg.Transition),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start reads the visited flag and enters the first step. A storage failure is
// logged and the visitor is treated as new.
func (o *Orchestrator) Start() {
	if o.started {
		slog.Debug("Orchestrator.Start: already started")
		return
	}
	o.started = true

	visited, err := o.marker.HasVisited()
	if err != nil {
		slog.Error("Orchestrator.Start: failed to read visited flag, treating as first visit", "error", err)
		visited = false
	}

	o.steps = o.steps[:0]
	if visited {
		o.steps = append(o.steps, models.StepWelcome)
	}
	o.steps = append(o.steps, models.StepHold, models.StepWipe, models.StepGallery, models.StepTimeline, models.StepLetter)
	o.state.FirstVisit = !visited

	slog.Info("Orchestrator.Start: flow starting", "first_visit", o.state.FirstVisit, "steps", len(o.steps))
	o.audio.PlayMusic()
	o.enter(0)
}

// Advance moves to the next step. It is a no-op at the final step, during a
// layer transition, before Start and after Close.
func (o *Orchestrator) Advance() {
	if !o.started || o.closed {
		return
	}
	if o.transition.Active() {
		slog.Debug("Orchestrator.Advance: ignored during transition", "step", o.state.Step)
		return
	}
	if o.index >= len(o.steps)-1 {
		slog.Debug("Orchestrator.Advance: already at final step", "step", o.state.Step)
		return
	}

	next := o.index + 1
	if o.steps[next].Layer() != o.state.Layer && o.cfg.Transition.Middle > 0 {
		slog.Info("Orchestrator.Advance: changing layer", "from", o.state.Layer, "to", o.steps[next].Layer())
		o.transition.Start(func() { o.enter(next) }, o.notify)
		o.notify()
		return
	}
	o.enter(next)
}

// SetWarmMode toggles warm mode.
func (o *Orchestrator) SetWarmMode(warm bool) {
	if o.state.WarmMode == warm {
		return
	}
	o.state.WarmMode = warm
	slog.Debug("Orchestrator.SetWarmMode", "warm", warm)
	o.notify()
}

// completeStep is the only path from a step back into the flow. A completion
// from a step that is no longer current is dropped.
func (o *Orchestrator) completeStep(id models.StepID) {
	if o.closed || o.state.Step != id {
		slog.Debug("Orchestrator.completeStep: stale completion ignored", "from", id, "current", o.state.Step)
		return
	}
	if o.transition.Active() {
		slog.Debug("Orchestrator.completeStep: duplicate completion during transition", "step", id)
		return
	}
	slog.Info("Orchestrator.completeStep: step finished", "step", id)
	o.Advance()
}

func (o *Orchestrator) enter(i int) {
	if o.closed {
		return
	}
	from := o.state.Step
	o.leaveActive()

	id := o.steps[i]
	o.index = i
	o.state.Step = id
	o.state.Layer = id.Layer()
	o.scope = clock.NewScope(o.sched, string(id))
	o.active = o.build(id)
	o.history = append(o.history, models.StateTransition{FromStep: from, ToStep: id, At: o.sched.Now()})

	slog.Info("Orchestrator entered step", "from", from, "to", id, "layer", o.state.Layer)

	ctx := &StepContext{
		Scope:    o.scope,
		Audio:    o.audio,
		step:     id,
		complete: o.completeStep,
		setWarm:  o.SetWarmMode,
	}
	o.active.Enter(ctx)

	if i == len(o.steps)-1 {
		o.markVisited()
	}
	o.notify()
}

func (o *Orchestrator) leaveActive() {
	if o.active == nil {
		return
	}
	if l, ok := o.active.(Leaver); ok {
		l.Leave()
	}
	o.scope.Release()
	o.active = nil
}

func (o *Orchestrator) markVisited() {
	if err := o.marker.MarkVisited(o.sched.Now()); err != nil {
		slog.Error("Orchestrator: failed to persist visited flag", "error", err)
		return
	}
	slog.Debug("Orchestrator: visited flag persisted")
}

func (o *Orchestrator) build(id models.StepID) Step {
	switch id {
	case models.StepWelcome:
		return NewWelcomeStep(o.cfg.WelcomeMessage, o.cfg.WelcomeDelay)
	case models.StepHold:
		return NewHoldStep(o.cfg.Hold, o.cfg.FrameInterval)
	case models.StepWipe:
		return NewWipeStep(o.cfg.Wipe, o.cfg.FrameInterval, nil)
	case models.StepGallery:
		return NewGalleryStep(o.cfg.Gallery, o.cfg.Memories)
	case models.StepTimeline:
		return NewTimelineStep(o.cfg.Timeline, o.cfg.FrameInterval)
	default:
		return NewLetterStep(o.cfg.Letter, o.cfg.Memories)
	}
}

// Close tears down the active step and any running transition.
func (o *Orchestrator) Close() {
	if o.closed {
		return
	}
	o.transition.Cancel()
	o.leaveActive()
	o.audio.StopVoice()
	o.audio.PauseMusic()
	o.closed = true
	slog.Info("Orchestrator closed", "step", o.state.Step)
}

func (o *Orchestrator) notify() {
	for _, fn := range o.listeners {
		fn(o.state)
	}
}

// State returns a copy of the flow state.
func (o *Orchestrator) State() models.FlowState { return o.state }

// Active returns the step currently rendered.
func (o *Orchestrator) Active() Step { return o.active }

// Steps returns the step order chosen at Start.
func (o *Orchestrator) Steps() []models.StepID {
	return append([]models.StepID(nil), o.steps...)
}

// History returns every step change so far.
func (o *Orchestrator) History() []models.StateTransition {
	return append([]models.StateTransition(nil), o.history...)
}

// TransitionPhase returns the layer overlay state.
func (o *Orchestrator) TransitionPhase() TransitionPhase { return o.transition.Phase() }

// Pending returns how many timers the active step still owns.
func (o *Orchestrator) Pending() int {
	if o.scope == nil {
		return 0
	}
	return o.scope.Pending()
}

// accepting reports whether input may reach the active step.
func (o *Orchestrator) accepting() bool {
	return o.active != nil && !o.closed && !o.transition.Active()
}

// Press forwards a pointer press.
func (o *Orchestrator) Press() {
	if p, ok := o.active.(Presser); ok && o.accepting() {
		p.Press()
	}
}

// Release forwards a pointer release.
func (o *Orchestrator) Release() {
	if p, ok := o.active.(Presser); ok && o.accepting() {
		p.Release()
	}
}

// Move forwards pointer movement in surface coordinates.
func (o *Orchestrator) Move(x, y float64) {
	if m, ok := o.active.(Mover); ok && o.accepting() {
		m.Move(x, y)
	}
}

// Scroll forwards a wheel or swipe delta; positive means forward.
func (o *Orchestrator) Scroll(delta float64) {
	if s, ok := o.active.(Scroller); ok && o.accepting() {
		s.Scroll(delta)
	}
}

// Click forwards an activation (click, tap, enter).
func (o *Orchestrator) Click() {
	if c, ok := o.active.(Clicker); ok && o.accepting() {
		c.Click()
	}
}

// Trigger forwards the letter-open trigger.
func (o *Orchestrator) Trigger() {
	if t, ok := o.active.(Triggerer); ok && o.accepting() {
		t.Trigger()
	}
}
