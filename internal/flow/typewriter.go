package flow

import (
	"strings"
	"time"

	"github.com/nampox/reveal/internal/clock"
)

// Typewriter reveals lines one character at a time. Finished lines stay
// visible and lines are never skipped.
type Typewriter struct {
	lines    [][]rune
	interval time.Duration
	pause    time.Duration

	scope   *clock.Scope
	tickID  string
	line    int
	char    int
	started bool
	done    bool
	onDone  func()
}

// NewTypewriter prepares a typewriter for lines.
func NewTypewriter(lines []string, interval, pause time.Duration) *Typewriter {
	t := &Typewriter{interval: interval, pause: pause}
	for _, l := range lines {
		t.lines = append(t.lines, []rune(l))
	}
	return t
}

// Start begins typing on scope. onDone runs once when the last line finishes.
func (t *Typewriter) Start(scope *clock.Scope, onDone func()) {
	if t.started {
		return
	}
	t.started = true
	t.scope = scope
	t.onDone = onDone
	t.beginLine()
}

func (t *Typewriter) beginLine() {
	if t.line >= len(t.lines) {
		t.finish()
		return
	}
	t.tickID = t.scope.Every(t.interval, t.tick)
}

func (t *Typewriter) tick() {
	if t.done {
		return
	}
	current := t.lines[t.line]
	if t.char < len(current) {
		t.char++
	}
	if t.char < len(current) {
		return
	}

	t.scope.Cancel(t.tickID)
	t.line++
	t.char = 0
	if t.line >= len(t.lines) {
		t.finish()
		return
	}
	t.scope.After(t.pause, t.beginLine)
}

func (t *Typewriter) finish() {
	if t.done {
		return
	}
	t.done = true
	if t.onDone != nil {
		t.onDone()
	}
}

// Lines returns the completed lines followed by the in-progress prefix, if any.
func (t *Typewriter) Lines() []string {
	out := make([]string, 0, t.line+1)
	for i := 0; i < t.line && i < len(t.lines); i++ {
		out = append(out, string(t.lines[i]))
	}
	if t.line < len(t.lines) && t.char > 0 {
		out = append(out, string(t.lines[t.line][:t.char]))
	}
	return out
}

// Text joins Lines with newlines.
func (t *Typewriter) Text() string { return strings.Join(t.Lines(), "\n") }

// Completed reports whether every line has been typed.
func (t *Typewriter) Completed() bool { return t.done }

// Position returns the current line and character index.
func (t *Typewriter) Position() (line, char int) { return t.line, t.char }
