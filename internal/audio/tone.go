package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Chords used when no audio files are configured.
var (
	MusicChord = []float64{220.00, 277.18, 329.63} // A major
	VoiceChord = []float64{392.00, 493.88}
)

// PadGenerator is a soft sine chord with a slow swell.
type PadGenerator struct {
	sr    beep.SampleRate
	freqs []float64
	pos   int
}

// NewPadGenerator creates a pad over freqs.
func NewPadGenerator(sr beep.SampleRate, freqs []float64) *PadGenerator {
	return &PadGenerator{sr: sr, freqs: freqs}
}

func (g *PadGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	if len(g.freqs) == 0 {
		return 0, false
	}
	amp := 0.3 / float64(len(g.freqs))
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		swell := 0.6 + 0.4*math.Sin(2*math.Pi*0.125*t)
		sample := 0.0
		for _, f := range g.freqs {
			sample += math.Sin(2 * math.Pi * f * t)
		}
		sample *= amp * swell
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *PadGenerator) Err() error { return nil }

// RenderPad renders d of a pad into a seekable buffer.
func RenderPad(freqs []float64, d time.Duration) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2})
	buf.Append(beep.Take(SampleRate.N(d), NewPadGenerator(SampleRate, freqs)))
	return buf
}
