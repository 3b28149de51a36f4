package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireLockRecordsHolder(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	h, ok := parseHolder(string(data))
	if !ok || h.PID != os.Getpid() {
		t.Fatalf("expected our pid in the lock file, got %q", data)
	}
	if time.Since(h.Started) > time.Minute {
		t.Errorf("unexpected start time %v", h.Started)
	}
}

func TestSecondServerIsRefused(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	defer first.Release()

	second, err := AcquireLock(dir)
	if err == nil {
		second.Release()
		t.Fatal("a second server must not get the state directory")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	if lockErr.Holder == nil || lockErr.Holder.PID != os.Getpid() || !lockErr.Holder.Alive {
		t.Errorf("expected the live holder to be reported, got %+v", lockErr.Holder)
	}
	if lockErr.Stale() {
		t.Error("a live holder is not stale")
	}
	msg := err.Error()
	if !strings.Contains(msg, dir) || !strings.Contains(msg, fmt.Sprintf("pid %d", os.Getpid())) {
		t.Errorf("error should name the path and holder: %s", msg)
	}

	// The refused attempt must leave the holder's record intact
	data, _ := os.ReadFile(first.Path())
	if h, ok := parseHolder(string(data)); !ok || h.PID != os.Getpid() {
		t.Errorf("holder record was clobbered: %q", data)
	}
}

func TestReleaseRemovesFileAndIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}

	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again.Release()
}

func TestAcquireLockCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory should exist: %v", err)
	}
}

func TestParseHolder(t *testing.T) {
	started := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		content string
		wantPID int
		wantOK  bool
		wantT   time.Time
	}{
		{"pid and start", "pid=12345\nstarted=2026-02-14T20:00:00Z\n", 12345, true, started},
		{"pid only", "pid=67890\n", 67890, true, time.Time{}},
		{"bad start ignored", "pid=7\nstarted=yesterday\n", 7, true, time.Time{}},
		{"no pid", "started=2026-02-14T20:00:00Z\n", 0, false, time.Time{}},
		{"non numeric pid", "pid=abc\n", 0, false, time.Time{}},
		{"negative pid", "pid=-4\n", 0, false, time.Time{}},
		{"empty", "", 0, false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := parseHolder(tt.content)
			if ok != tt.wantOK || h.PID != tt.wantPID || !h.Started.Equal(tt.wantT) {
				t.Errorf("parseHolder(%q) = %+v, %v", tt.content, h, ok)
			}
		})
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("our own process should be alive")
	}
	if processAlive(999999) {
		t.Logf("pid 999999 exists on this machine")
	}
}

func TestStaleRecordDoesNotBlock(t *testing.T) {
	if processAlive(999999) {
		t.Skip("pid 999999 exists on this machine")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, []byte("pid=999999\nstarted=2026-02-14T20:00:00Z\n"), 0644); err != nil {
		t.Fatal(err)
	}

	h, ok := readHolder(path)
	if !ok || h.Alive {
		t.Fatalf("expected a dead holder, got %+v", h)
	}
	if !(&LockError{Path: path, Holder: &h}).Stale() {
		t.Error("a dead holder should be stale")
	}
	if (&LockError{Path: path}).Stale() {
		t.Error("an unknown holder is not known to be stale")
	}

	// Without a live flock the leftover file is simply taken over
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock over a stale file: %v", err)
	}
	defer lock.Release()
	data, _ := os.ReadFile(path)
	if got, _ := parseHolder(string(data)); got.PID != os.Getpid() {
		t.Errorf("expected our pid after takeover, got %q", data)
	}
}
