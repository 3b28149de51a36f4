package flow

import (
	"time"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/models"
)

var testEpoch = time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)

// harness runs a single step outside the orchestrator.
type harness struct {
	clock       *clock.Manual
	ctx         *StepContext
	completions int
	warm        []bool
	audio       *fakeAudio
}

func newHarness(id models.StepID) *harness {
	h := &harness{clock: clock.NewManual(testEpoch), audio: &fakeAudio{}}
	h.ctx = &StepContext{
		Scope:    clock.NewScope(h.clock, string(id)),
		Audio:    h.audio,
		step:     id,
		complete: func(models.StepID) { h.completions++ },
		setWarm:  func(w bool) { h.warm = append(h.warm, w) },
	}
	return h
}

type fakeAudio struct {
	playing     bool
	voicePlays  int
	voiceStops  int
	musicPlays  int
	musicPauses int
}

func (a *fakeAudio) PlayMusic()  { a.musicPlays++ }
func (a *fakeAudio) PauseMusic() { a.musicPauses++ }

func (a *fakeAudio) PlayVoice() {
	a.playing = true
	a.voicePlays++
}

func (a *fakeAudio) StopVoice() {
	if a.playing {
		a.voiceStops++
	}
	a.playing = false
}

func (a *fakeAudio) VoicePlaying() bool { return a.playing }

// sweep erases the whole surface row by row.
func sweep(m Mover, p Presser, w, h int) {
	for y := 0; y <= h; y += 10 {
		p.Press()
		for x := 0; x <= w; x += 8 {
			m.Move(float64(x), float64(y))
		}
		p.Release()
	}
}
