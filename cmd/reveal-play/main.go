// Command reveal-play runs the reveal flow in the terminal, with the mouse as
// the pointer and the visited flag kept in the user's data directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"

	"github.com/nampox/reveal/internal/audio"
	"github.com/nampox/reveal/internal/clock"
	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/models"
	"github.com/nampox/reveal/internal/player"
	"github.com/nampox/reveal/internal/store"
	"github.com/nampox/reveal/internal/util"
)

// AppName names the per-user data directory holding the visited flag.
const AppName = "reveal"

// Lengths of the built-in pads used when no WAV files are given.
const (
	defaultMusicLength = 8 * time.Second
	defaultVoiceLength = 6 * time.Second
)

// Flags holds command line flag values
type Flags struct {
	choreography string
	music        string
	voice        string
	logFile      string
	logLevel     string
	noAudio      bool
	reset        bool
	debug        bool
}

func main() {
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	closeLog, err := initializeLogger(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(flags); err != nil {
		slog.Error("reveal-play failed", "error", err)
		fmt.Fprintf(os.Stderr, "reveal-play: %v\n", err)
		os.Exit(1)
	}
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var flags Flags
	fs.StringVar(&flags.choreography, "choreography", os.Getenv("REVEAL_CHOREOGRAPHY"), "YAML choreography file (overrides $REVEAL_CHOREOGRAPHY)")
	fs.StringVar(&flags.music, "music", "", "WAV file for the background music")
	fs.StringVar(&flags.voice, "voice", "", "WAV file for the voice note")
	fs.StringVar(&flags.logFile, "log-file", "", "write logs to this file (the terminal belongs to the player)")
	fs.StringVar(&flags.logLevel, "log-level", os.Getenv("REVEAL_LOG_LEVEL"), "debug, info, warn or error (overrides $REVEAL_LOG_LEVEL)")
	fs.BoolVar(&flags.noAudio, "no-audio", !util.ParseBoolEnv("REVEAL_AUDIO", true), "run without sound (overrides $REVEAL_AUDIO)")
	fs.BoolVar(&flags.reset, "reset", false, "forget the visited flag before starting")
	fs.BoolVar(&flags.debug, "debug", false, "show pending timers in the status line")
	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	return flags, nil
}

// initializeLogger logs to the given file, or nowhere while the screen is in use.
func initializeLogger(flags Flags) (func(), error) {
	var w io.Writer = io.Discard
	closer := func() {}
	if flags.logFile != "" {
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return closer, err
		}
		w = f
		closer = func() { f.Close() }
	}
	level := util.ParseLogLevel(flags.logLevel, slog.LevelInfo)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closer, nil
}

func run(flags Flags) error {
	cfg, err := flow.LoadConfig(flags.choreography)
	if err != nil {
		return err
	}

	marker, err := store.OpenLocalFlag(AppName)
	if err != nil {
		slog.Warn("visited flag will not survive this session", "error", err)
	}
	if flags.reset {
		if err := marker.Reset(); err != nil {
			slog.Warn("failed to reset visited flag", "error", err)
		}
	}

	loop := clock.NewLoop()

	var ctrl *audio.Controller
	music, voice, closeAudio := openTracks(flags, func() {
		loop.Post(func() { ctrl.VoiceFinished() })
	})
	defer closeAudio()
	ctrl = audio.NewController(loop, music, voice, cfg.Audio)
	defer ctrl.Close()

	orch := flow.NewOrchestrator(loop, cfg,
		flow.WithVisitMarker(marker),
		flow.WithAudio(ctrl),
		flow.WithListener(func(s models.FlowState) {
			slog.Debug("flow state", "step", s.Step, "layer", s.Layer, "warm", s.WarmMode, "first_visit", s.FirstVisit)
		}))

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialise screen: %w", err)
	}
	defer screen.Fini()

	opts := []player.Option{player.WithVoiceState(ctrl)}
	if flags.debug {
		opts = append(opts, player.WithDebug())
	}
	p := player.New(screen, orch, cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return p.Run(ctx, loop)
}

// openTracks builds the music and voice tracks. Without a working speaker the
// flow still runs on silent tracks.
func openTracks(flags Flags, onVoiceEnd func()) (audio.Track, audio.Track, func()) {
	silent := func() (audio.Track, audio.Track, func()) {
		return audio.NewNullTrack(1), audio.NewNullTrack(1), func() {}
	}
	if flags.noAudio {
		return silent()
	}

	musicBuf, err := loadOrRender(flags.music, audio.MusicChord, defaultMusicLength)
	if err != nil {
		slog.Warn("music unavailable, running silent", "error", err)
		return silent()
	}
	voiceBuf, err := loadOrRender(flags.voice, audio.VoiceChord, defaultVoiceLength)
	if err != nil {
		slog.Warn("voice note unavailable, running silent", "error", err)
		return silent()
	}

	out, err := audio.OpenOutput()
	if err != nil {
		slog.Warn("audio output unavailable, running silent", "error", err)
		return silent()
	}

	lock := audio.WithLocker(audio.SpeakerLocker{})
	music := audio.NewBeepTrack(musicBuf.Streamer(0, musicBuf.Len()), lock, audio.WithLoop())
	voice := audio.NewBeepTrack(voiceBuf.Streamer(0, voiceBuf.Len()), lock, audio.WithOnEnd(onVoiceEnd))
	out.Add(music)
	out.Add(voice)
	return music, voice, out.Close
}

func loadOrRender(path string, chord []float64, length time.Duration) (*beep.Buffer, error) {
	if path == "" {
		return audio.RenderPad(chord, length), nil
	}
	return audio.LoadWAV(path)
}
