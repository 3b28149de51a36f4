package flow

import (
	"math/rand"
	"testing"
	"time"

	"github.com/nampox/reveal/internal/models"
)

func TestTimelineStep_LockThenSubtextThenIndicator(t *testing.T) {
	h := newHarness(models.StepTimeline)
	cfg := DefaultConfig().Timeline
	step := NewTimelineStep(cfg, testFrame)
	step.Enter(h.ctx)
	first := cfg.Milestones[0]

	step.Scroll(500)
	if step.Index() != 0 {
		t.Fatal("scroll during the lock window must be ignored")
	}
	h.clock.Advance(first.MinDwell - time.Millisecond)
	step.Scroll(500)
	if step.Index() != 0 || !step.Locked() {
		t.Fatal("milestone unlocked early")
	}

	h.clock.Advance(time.Millisecond)
	if step.Locked() {
		t.Fatal("expected unlock after the dwell")
	}
	if step.SubtextVisible() || step.IndicatorVisible() {
		t.Fatal("subtext and indicator must wait for the unlock")
	}
	h.clock.Advance(cfg.SubtextDelay)
	if !step.SubtextVisible() || step.IndicatorVisible() {
		t.Fatalf("expected subtext only, got subtext=%v indicator=%v", step.SubtextVisible(), step.IndicatorVisible())
	}
	h.clock.Advance(cfg.IndicatorDelay)
	if !step.IndicatorVisible() {
		t.Fatal("expected indicator after the subtext")
	}

	step.Scroll(cfg.ScrollThreshold - 1)
	if step.Index() != 0 {
		t.Fatal("small scroll deltas must not advance")
	}
	step.Scroll(cfg.ScrollThreshold)
	if step.Index() != 1 {
		t.Fatalf("expected milestone 1, got %d", step.Index())
	}
	if !step.Locked() || step.SubtextVisible() || step.IndicatorVisible() {
		t.Error("a new milestone must start locked with its reveals hidden")
	}
}

func TestTimelineStep_RandomInputNeverSkipsLock(t *testing.T) {
	cfg := DefaultConfig().Timeline
	for seed := int64(1); seed <= 20; seed++ {
		h := newHarness(models.StepTimeline)
		step := NewTimelineStep(cfg, testFrame)
		step.Enter(h.ctx)
		rng := rand.New(rand.NewSource(seed))

		for i := 0; i < 600 && step.Phase() == TimelineMilestones; i++ {
			switch rng.Intn(4) {
			case 0:
				step.Scroll(rng.Float64() * 200)
			case 1:
				step.Press()
			case 2:
				step.Release()
			default:
				h.clock.Advance(time.Duration(rng.Intn(400)) * time.Millisecond)
			}
		}

		entered := step.EnteredAt()
		for i := 1; i < len(entered); i++ {
			if gap := entered[i].Sub(entered[i-1]); gap < cfg.Milestones[i-1].MinDwell {
				t.Fatalf("seed %d: milestone %d reached %v after %d, lock is %v", seed, i, gap, i-1, cfg.Milestones[i-1].MinDwell)
			}
		}
	}
}

func TestTimelineStep_HoldMilestoneCharges(t *testing.T) {
	h := newHarness(models.StepTimeline)
	cfg := DefaultConfig().Timeline
	step := NewTimelineStep(cfg, testFrame)
	step.Enter(h.ctx)

	for step.Milestone().Interaction != models.InteractionHold {
		h.clock.Advance(step.Milestone().MinDwell)
		step.Scroll(100)
	}
	holdIndex := step.Index()
	h.clock.Advance(step.Milestone().MinDwell)

	step.Scroll(1000)
	if step.Index() != holdIndex {
		t.Fatal("scrolling must not pass a hold milestone")
	}

	step.Press()
	h.clock.Advance(time.Second)
	if c := step.Charge(); c < 0.4 || c > 0.6 {
		t.Fatalf("expected about half charge, got %v", c)
	}
	step.Release()
	h.clock.Advance(500 * time.Millisecond)
	if c := step.Charge(); c > 0.2 {
		t.Fatalf("expected the charge to decay on release, got %v", c)
	}
	step.Release()
	h.clock.Advance(2 * time.Second)
	if c := step.Charge(); c != 0 {
		t.Fatalf("expected the charge to bottom out at 0, got %v", c)
	}

	step.Press()
	h.clock.Advance(2100 * time.Millisecond)
	if step.Index() != holdIndex+1 {
		t.Fatalf("expected a full charge to advance, index %d", step.Index())
	}
}

func TestTimelineStep_WarmModeFollowsMood(t *testing.T) {
	h := newHarness(models.StepTimeline)
	cfg := DefaultConfig().Timeline
	for i := range cfg.Milestones {
		cfg.Milestones[i].Interaction = models.InteractionScroll
	}
	step := NewTimelineStep(cfg, testFrame)
	step.Enter(h.ctx)
	for range cfg.Milestones {
		h.clock.Advance(step.Milestone().MinDwell)
		step.Scroll(100)
	}

	if len(h.warm) != len(cfg.Milestones)+1 {
		t.Fatalf("expected one warm update per milestone plus the void, got %v", h.warm)
	}
	for i, m := range cfg.Milestones {
		if h.warm[i] != (m.Mood == models.MoodWarm) {
			t.Errorf("milestone %d: warm=%v for mood %s", i, h.warm[i], m.Mood)
		}
	}
	if h.warm[len(h.warm)-1] {
		t.Error("the void must leave warm mode")
	}
}

func TestTimelineStep_VoidSequence(t *testing.T) {
	h := newHarness(models.StepTimeline)
	cfg := DefaultConfig().Timeline
	cfg.Milestones = cfg.Milestones[:1]
	step := NewTimelineStep(cfg, testFrame)
	step.Enter(h.ctx)

	h.clock.Advance(cfg.Milestones[0].MinDwell)
	step.Scroll(100)
	if step.Phase() != TimelineBlackout || step.VoidMessageVisible() {
		t.Fatalf("expected blackout, got %s", step.Phase())
	}
	step.Scroll(100)

	h.clock.Advance(cfg.Void.Blackout)
	if step.Phase() != TimelineMessage || !step.VoidMessageVisible() {
		t.Fatalf("expected the void message, got %s", step.Phase())
	}
	h.clock.Advance(cfg.Void.MessageHold)
	if step.Phase() != TimelineTail || step.VoidMessageVisible() {
		t.Fatalf("expected the message hidden, got %s", step.Phase())
	}
	h.clock.Advance(cfg.Void.Tail - time.Millisecond)
	if h.completions != 0 {
		t.Fatal("completed before the void finished")
	}
	h.clock.Advance(time.Millisecond)
	if h.completions != 1 || step.Phase() != TimelineDone {
		t.Fatalf("expected one completion, got %d in %s", h.completions, step.Phase())
	}
	if pending := h.ctx.Scope.Pending(); pending != 0 {
		t.Errorf("expected no timers left, got %d", pending)
	}
}
