package audio

import (
	"log/slog"

	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/flow"
)

// Controller is the flow's single audio owner. Playback failures are logged
// and never block the flow.
type Controller struct {
	music  Track
	voice  Track
	ducker *Ducker
}

var _ flow.AudioRequester = (*Controller)(nil)

// NewController wires music and voice to a ducker built from cfg. Music starts at the baseline.
func NewController(sched clock.Scheduler, music, voice Track, cfg flow.AudioConfig) *Controller {
	music.SetVolume(cfg.Baseline)
	return &Controller{
		music:  music,
		voice:  voice,
		ducker: NewDucker(sched, music, cfg.Baseline, cfg.DuckFactor, cfg.Ramp, cfg.RampSteps),
	}
}

func (c *Controller) PlayMusic() {
	if err := c.music.Play(); err != nil {
		slog.Warn("Controller.PlayMusic: playback failed, continuing without music", "error", err)
		return
	}
	slog.Debug("Controller.PlayMusic: music playing", "volume", c.music.Volume())
}

func (c *Controller) PauseMusic() {
	c.music.Pause()
}

// PlayVoice starts the voice note and ducks the music under it.
func (c *Controller) PlayVoice() {
	if c.voice.Playing() {
		return
	}
	if err := c.voice.Play(); err != nil {
		slog.Warn("Controller.PlayVoice: playback failed", "error", err)
		return
	}
	c.ducker.Duck()
	slog.Info("Controller.PlayVoice: voice note playing", "music_target", c.ducker.Target())
}

// StopVoice stops the voice note and restores the music.
func (c *Controller) StopVoice() {
	if !c.voice.Playing() {
		return
	}
	c.voice.Stop()
	c.ducker.Restore()
	slog.Info("Controller.StopVoice: voice note stopped")
}

// VoiceFinished is called when the voice note ends on its own.
func (c *Controller) VoiceFinished() {
	c.voice.Stop()
	c.ducker.Restore()
	slog.Debug("Controller.VoiceFinished: music restored")
}

func (c *Controller) VoicePlaying() bool { return c.voice.Playing() }

// MusicVolume returns the current background volume.
func (c *Controller) MusicVolume() float64 { return c.music.Volume() }

// Ducker exposes the ramp state for rendering and tests.
func (c *Controller) Ducker() *Ducker { return c.ducker }

// Close stops both tracks and any ramp.
func (c *Controller) Close() {
	c.ducker.Close()
	c.voice.Stop()
	c.music.Pause()
}
