// Package audio owns the background music and the voice note. Only the
// Controller changes volume; steps ask it to play or pause.
package audio

import (
	"errors"
	"sync"
)

// ErrPlaybackRejected is returned by tracks that refuse to start.
var ErrPlaybackRejected = errors.New("playback rejected")

// Track is one playable stream with its own volume in [0,1].
type Track interface {
	Play() error
	Pause()
	// Stop pauses and rewinds to the start.
	Stop()
	Playing() bool
	SetVolume(v float64)
	Volume() float64
}

// NullTrack is a silent Track that only keeps state. It backs headless runs and tests.
type NullTrack struct {
	mu      sync.Mutex
	playing bool
	volume  float64
	plays   int
	// PlayErr, when set, is returned by Play and the track stays paused.
	PlayErr error
}

// NewNullTrack creates a paused silent track at the given volume.
func NewNullTrack(volume float64) *NullTrack {
	return &NullTrack{volume: clamp01(volume)}
}

func (t *NullTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PlayErr != nil {
		return t.PlayErr
	}
	t.playing = true
	t.plays++
	return nil
}

func (t *NullTrack) Pause() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

func (t *NullTrack) Stop() { t.Pause() }

func (t *NullTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *NullTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = clamp01(v)
	t.mu.Unlock()
}

func (t *NullTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Plays returns how many times Play succeeded.
func (t *NullTrack) Plays() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plays
}

// End simulates the stream reaching its end.
func (t *NullTrack) End() { t.Pause() }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
