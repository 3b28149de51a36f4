package flow

import (
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/models"
)

// TimelinePhase is the sub-state of the timeline step.
type TimelinePhase string

const (
	TimelineMilestones TimelinePhase = "milestones"
	TimelineBlackout   TimelinePhase = "void_blackout"
	TimelineMessage    TimelinePhase = "void_message"
	TimelineTail       TimelinePhase = "void_tail"
	TimelineDone       TimelinePhase = "done"
)

// TimelineStep walks the milestone list. Each milestone opens locked. After the
// lock the subtext appears, then the indicator, and only then does the
// configured gesture move forward. After the last milestone the step enters the
// void and completes on its own.
type TimelineStep struct {
	cfg   TimelineConfig
	frame time.Duration
	ctx   *StepContext

	phase     TimelinePhase
	index     int
	milestone *clock.Scope
	enteredAt []time.Time

	locked      bool
	subtext     bool
	indicator   bool
	holding     bool
	charge      Charge
	lastTick    time.Time
	voidMessage bool
}

func NewTimelineStep(cfg TimelineConfig, frame time.Duration) *TimelineStep {
	return &TimelineStep{cfg: cfg, frame: frame, phase: TimelineMilestones}
}

func (t *TimelineStep) ID() models.StepID { return models.StepTimeline }

func (t *TimelineStep) Enter(ctx *StepContext) {
	t.ctx = ctx
	t.enterMilestone(0)
}

func (t *TimelineStep) current() models.Milestone { return t.cfg.Milestones[t.index] }

func (t *TimelineStep) enterMilestone(i int) {
	if t.milestone != nil {
		t.milestone.Release()
	}
	t.index = i
	t.milestone = t.ctx.Scope.Child("milestone")
	t.enteredAt = append(t.enteredAt, t.ctx.Scope.Now())
	t.locked = true
	t.subtext = false
	t.indicator = false
	t.holding = false
	t.charge = NewCharge(t.cfg.Charge)

	m := t.current()
	t.ctx.SetWarm(m.Mood == models.MoodWarm)
	slog.Debug("TimelineStep: milestone entered", "index", i, "mood", m.Mood, "interaction", m.Interaction)

	t.milestone.After(m.MinDwell, t.unlock)
}

func (t *TimelineStep) unlock() {
	t.locked = false
	scope := t.milestone
	scope.After(t.cfg.SubtextDelay, func() {
		t.subtext = true
		scope.After(t.cfg.IndicatorDelay, func() { t.indicator = true })
	})
	if t.current().Interaction == models.InteractionHold {
		t.lastTick = scope.Now()
		scope.Every(t.frame, t.chargeTick)
	}
}

func (t *TimelineStep) chargeTick() {
	now := t.milestone.Now()
	dt := now.Sub(t.lastTick)
	t.lastTick = now
	if t.charge.Step(dt, t.holding) {
		slog.Debug("TimelineStep: charge full", "index", t.index)
		t.next()
	}
}

func (t *TimelineStep) next() {
	if t.phase != TimelineMilestones {
		return
	}
	if t.index < len(t.cfg.Milestones)-1 {
		t.enterMilestone(t.index + 1)
		return
	}
	t.enterVoid()
}

func (t *TimelineStep) enterVoid() {
	t.milestone.Release()
	t.phase = TimelineBlackout
	t.ctx.SetWarm(false)
	slog.Info("TimelineStep: entering void", "milestones", len(t.cfg.Milestones))

	v := t.cfg.Void
	s := t.ctx.Scope
	s.After(v.Blackout, func() {
		t.phase = TimelineMessage
		t.voidMessage = true
		s.After(v.MessageHold, func() {
			t.phase = TimelineTail
			t.voidMessage = false
			s.After(v.Tail, func() {
				t.phase = TimelineDone
				t.ctx.Complete()
			})
		})
	})
}

// Scroll advances a scroll milestone once unlocked and the delta is large enough.
func (t *TimelineStep) Scroll(delta float64) {
	if t.phase != TimelineMilestones || t.locked {
		return
	}
	if t.current().Interaction != models.InteractionScroll || delta < t.cfg.ScrollThreshold {
		return
	}
	t.next()
}

// Press starts charging a hold milestone.
func (t *TimelineStep) Press() { t.holding = true }

// Release lets the charge decay.
func (t *TimelineStep) Release() { t.holding = false }

func (t *TimelineStep) Phase() TimelinePhase { return t.phase }
func (t *TimelineStep) Index() int           { return t.index }
func (t *TimelineStep) Locked() bool         { return t.locked }
func (t *TimelineStep) SubtextVisible() bool { return t.subtext }

func (t *TimelineStep) IndicatorVisible() bool   { return t.indicator }
func (t *TimelineStep) Charge() float64          { return t.charge.Value }
func (t *TimelineStep) VoidMessageVisible() bool { return t.voidMessage }
func (t *TimelineStep) VoidMessage() string      { return t.cfg.Void.Message }

// Milestone returns the milestone on screen.
func (t *TimelineStep) Milestone() models.Milestone { return t.current() }

// EnteredAt returns when each visited milestone was shown, in order.
func (t *TimelineStep) EnteredAt() []time.Time {
	return append([]time.Time(nil), t.enteredAt...)
}
