package clock

import (
	"log/slog"
	"time"
)

// Scope owns every timer a single flow step starts. Releasing the scope cancels
// all of them, including those of child scopes, so nothing fires into a step that
// has already been torn down. Scopes are used from the scheduler's thread only.
type Scope struct {
	name     string
	sched    Scheduler
	ids      map[string]struct{}
	children []*Scope
	released bool
}

// NewScope acquires a new scope on the given scheduler.
func NewScope(sched Scheduler, name string) *Scope {
	return &Scope{
		name:  name,
		sched: sched,
		ids:   make(map[string]struct{}),
	}
}

// Name returns the label the scope was created with.
func (s *Scope) Name() string { return s.name }

// Now returns the scheduler's current time.
func (s *Scope) Now() time.Time { return s.sched.Now() }

// After schedules fn once. It returns "" when the scope is already released.
func (s *Scope) After(delay time.Duration, fn func()) string {
	if s.released {
		slog.Debug("Scope.After: ignored on released scope", "scope", s.name)
		return ""
	}
	var id string
	id = s.sched.After(delay, func() {
		delete(s.ids, id)
		if s.released {
			return
		}
		fn()
	})
	s.ids[id] = struct{}{}
	return id
}

// Every schedules fn repeatedly. It returns "" when the scope is already released.
func (s *Scope) Every(interval time.Duration, fn func()) string {
	if s.released {
		slog.Debug("Scope.Every: ignored on released scope", "scope", s.name)
		return ""
	}
	id := s.sched.Every(interval, func() {
		if s.released {
			return
		}
		fn()
	})
	s.ids[id] = struct{}{}
	return id
}

// Cancel stops a timer owned by this scope. Empty IDs are ignored.
func (s *Scope) Cancel(id string) {
	if id == "" {
		return
	}
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	s.sched.Cancel(id)
}

// Child acquires a nested scope that is released together with its parent.
func (s *Scope) Child(name string) *Scope {
	c := NewScope(s.sched, s.name+"/"+name)
	if s.released {
		c.released = true
		return c
	}
	live := s.children[:0]
	for _, existing := range s.children {
		if !existing.released {
			live = append(live, existing)
		}
	}
	s.children = append(live, c)
	return c
}

// Release cancels every pending timer of the scope and its children.
// Calling Release more than once is safe.
func (s *Scope) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, c := range s.children {
		c.Release()
	}
	s.children = nil
	cancelled := 0
	for id := range s.ids {
		if s.sched.Cancel(id) {
			cancelled++
		}
	}
	s.ids = make(map[string]struct{})
	slog.Debug("Scope released", "scope", s.name, "cancelled", cancelled)
}

// Released reports whether Release has been called.
func (s *Scope) Released() bool { return s.released }

// Pending returns the number of live timers owned by the scope and its children.
func (s *Scope) Pending() int {
	n := len(s.ids)
	for _, c := range s.children {
		n += c.Pending()
	}
	return n
}
