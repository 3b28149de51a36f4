package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// SampleRate is the output rate every track is resampled to.
const SampleRate = beep.SampleRate(44100)

// BeepTrack plays a seekable stream through a beep mixer.
type BeepTrack struct {
	lock    sync.Locker
	src     beep.StreamSeeker
	ctrl    *beep.Ctrl
	vol     *effects.Volume
	level   float64
	loop    bool
	playing atomic.Bool
	onEnd   func()
}

// TrackOption configures a BeepTrack.
type TrackOption func(*BeepTrack)

// WithLocker sets the lock guarding state shared with the audio thread.
func WithLocker(l sync.Locker) TrackOption {
	return func(t *BeepTrack) { t.lock = l }
}

// WithLoop makes the track start over when it reaches the end.
func WithLoop() TrackOption {
	return func(t *BeepTrack) { t.loop = true }
}

// WithOnEnd sets a callback run on the audio thread when a non-looping track ends.
// It must not block.
func WithOnEnd(fn func()) TrackOption {
	return func(t *BeepTrack) { t.onEnd = fn }
}

// NewBeepTrack creates a paused track over src.
func NewBeepTrack(src beep.StreamSeeker, opts ...TrackOption) *BeepTrack {
	t := &BeepTrack{lock: &sync.Mutex{}, src: src, level: 1}
	for _, opt := range opts {
		opt(t)
	}
	var s beep.Streamer = src
	if t.loop {
		s = beep.Loop(-1, src)
	}
	t.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	t.vol = &effects.Volume{Streamer: t.ctrl, Base: 2}
	t.applyVolume()
	return t
}

// Stream implements beep.Streamer. A finished non-looping track rewinds,
// pauses and keeps producing silence so it can stay in the mixer.
func (t *BeepTrack) Stream(samples [][2]float64) (int, bool) {
	n, _ := t.vol.Stream(samples)
	if n < len(samples) {
		for i := n; i < len(samples); i++ {
			samples[i] = [2]float64{}
		}
		if !t.ctrl.Paused {
			t.ctrl.Paused = true
			_ = t.src.Seek(0)
			t.playing.Store(false)
			if t.onEnd != nil {
				t.onEnd()
			}
		}
	}
	return len(samples), true
}

func (t *BeepTrack) Err() error { return t.src.Err() }

func (t *BeepTrack) Play() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.ctrl.Paused = false
	t.playing.Store(true)
	return nil
}

func (t *BeepTrack) Pause() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.ctrl.Paused = true
	t.playing.Store(false)
}

func (t *BeepTrack) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.ctrl.Paused = true
	t.playing.Store(false)
	_ = t.src.Seek(0)
}

func (t *BeepTrack) Playing() bool { return t.playing.Load() }

func (t *BeepTrack) SetVolume(v float64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.level = clamp01(v)
	t.applyVolume()
}

func (t *BeepTrack) Volume() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.level
}

// applyVolume maps the linear level onto the base-2 gain of effects.Volume.
func (t *BeepTrack) applyVolume() {
	if t.level <= 0 {
		t.vol.Silent = true
		t.vol.Volume = 0
		return
	}
	t.vol.Silent = false
	t.vol.Volume = math.Log2(t.level)
}

// LoadWAV decodes a WAV file into memory at SampleRate.
func LoadWAV(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer s.Close()

	buf := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2})
	buf.Append(beep.Resample(4, format.SampleRate, SampleRate, s))
	return buf, nil
}

// Output is the process-wide speaker with its mixer.
type Output struct {
	mixer *beep.Mixer
}

// OpenOutput initialises the speaker with a 100ms buffer.
func OpenOutput() (*Output, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("failed to initialise speaker: %w", err)
	}
	o := &Output{mixer: &beep.Mixer{}}
	speaker.Play(o.mixer)
	return o, nil
}

// Add starts mixing a track.
func (o *Output) Add(t *BeepTrack) {
	speaker.Lock()
	o.mixer.Add(t)
	speaker.Unlock()
}

// Close silences the mixer.
func (o *Output) Close() {
	speaker.Lock()
	o.mixer.Clear()
	speaker.Unlock()
}

// SpeakerLocker guards BeepTrack state against the speaker goroutine.
type SpeakerLocker struct{}

func (SpeakerLocker) Lock()   { speaker.Lock() }
func (SpeakerLocker) Unlock() { speaker.Unlock() }
