package audio

import (
	"log/slog"
	"time"

	"github.com/nampox/reveal/internal/clock"
)

// Ducker ramps a track's volume with stepped interpolation. At most one ramp
// runs at a time: starting a new one cancels the one in flight.
type Ducker struct {
	sched    clock.Scheduler
	track    Track
	baseline float64
	factor   float64
	ramp     time.Duration
	steps    int
	fade     *clock.Scope
	target   float64
}

// NewDucker creates a ducker for track. steps below one are treated as one.
func NewDucker(sched clock.Scheduler, track Track, baseline, factor float64, ramp time.Duration, steps int) *Ducker {
	if steps < 1 {
		steps = 1
	}
	return &Ducker{
		sched:    sched,
		track:    track,
		baseline: clamp01(baseline),
		factor:   clamp01(factor),
		ramp:     ramp,
		steps:    steps,
	}
}

// FadeTo ramps from the current volume to target over the configured duration.
func (d *Ducker) FadeTo(target float64) {
	d.cancel()
	target = clamp01(target)
	from := d.track.Volume()
	d.target = target

	if d.ramp <= 0 {
		d.track.SetVolume(target)
		return
	}

	scope := clock.NewScope(d.sched, "fade")
	d.fade = scope
	interval := d.ramp / time.Duration(d.steps)
	step := 0
	scope.Every(interval, func() {
		step++
		v := from + (target-from)*float64(step)/float64(d.steps)
		if step >= d.steps {
			v = target
		}
		d.track.SetVolume(v)
		if step >= d.steps {
			scope.Release()
			if d.fade == scope {
				d.fade = nil
			}
		}
	})
	slog.Debug("Ducker.FadeTo: ramp started", "from", from, "to", target, "steps", d.steps)
}

// Duck lowers the volume to a fraction of its current value.
func (d *Ducker) Duck() {
	d.FadeTo(d.track.Volume() * d.factor)
}

// Restore ramps back to the baseline.
func (d *Ducker) Restore() {
	d.FadeTo(d.baseline)
}

// Fading reports whether a ramp is in flight.
func (d *Ducker) Fading() bool { return d.fade != nil && !d.fade.Released() }

// Target returns the target of the last ramp.
func (d *Ducker) Target() float64 { return d.target }

// Pending returns the timers the active ramp holds.
func (d *Ducker) Pending() int {
	if d.fade == nil {
		return 0
	}
	return d.fade.Pending()
}

// Close cancels any ramp in flight.
func (d *Ducker) Close() { d.cancel() }

func (d *Ducker) cancel() {
	if d.fade != nil {
		d.fade.Release()
		d.fade = nil
	}
}
