package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nampox/reveal/internal/audio"
)

func parse(t *testing.T, args ...string) Flags {
	t.Helper()
	fs := flag.NewFlagSet("reveal-play", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags, err := parseCommandLineFlags(fs, args)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return flags
}

func TestParseCommandLineFlags(t *testing.T) {
	t.Setenv("REVEAL_AUDIO", "off")
	t.Setenv("REVEAL_CHOREOGRAPHY", "show.yaml")
	flags := parse(t)
	if !flags.noAudio || flags.choreography != "show.yaml" {
		t.Errorf("Expected environment defaults, got %+v", flags)
	}

	flags = parse(t, "-no-audio=false", "-reset", "-debug", "-choreography", "other.yaml")
	if flags.noAudio || !flags.reset || !flags.debug || flags.choreography != "other.yaml" {
		t.Errorf("Expected flags to override, got %+v", flags)
	}
}

func TestOpenTracksWithoutAudio(t *testing.T) {
	music, voice, closeAudio := openTracks(Flags{noAudio: true}, func() {})
	defer closeAudio()
	if _, ok := music.(*audio.NullTrack); !ok {
		t.Errorf("Expected a silent music track, got %T", music)
	}
	if _, ok := voice.(*audio.NullTrack); !ok {
		t.Errorf("Expected a silent voice track, got %T", voice)
	}
}

func TestOpenTracksMissingFileFallsBackToSilence(t *testing.T) {
	flags := Flags{music: filepath.Join(t.TempDir(), "missing.wav")}
	music, _, closeAudio := openTracks(flags, func() {})
	defer closeAudio()
	if _, ok := music.(*audio.NullTrack); !ok {
		t.Errorf("Expected a silent fallback, got %T", music)
	}
}

func TestLoadOrRenderBuiltInPad(t *testing.T) {
	buf, err := loadOrRender("", audio.VoiceChord, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if want := audio.SampleRate.N(100 * time.Millisecond); buf.Len() != want {
		t.Errorf("Expected %d samples, got %d", want, buf.Len())
	}
}

func TestInitializeLoggerWritesToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "play.log")
	closeLog, err := initializeLogger(Flags{logFile: path, logLevel: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	slog.Debug("hello from the player")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from the player") {
		t.Errorf("Expected the log line in %s, got %q", path, data)
	}
}
