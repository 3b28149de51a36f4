package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// timerEntry tracks information about a scheduled timer
type timerEntry struct {
	timer       *time.Timer
	scheduledAt time.Time
	expiresAt   time.Time
	interval    time.Duration
	description string
}

// Loop is the production Scheduler. Timers fire on runtime goroutines but their
// callbacks are queued and executed one at a time by Run, together with any
// work handed in through Post.
type Loop struct {
	mu     sync.RWMutex
	timers map[string]*timerEntry
	nextID int64

	qmu   sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates a new Loop. Callbacks do not run until Run is called.
func NewLoop() *Loop {
	slog.Debug("Creating clock Loop")
	return &Loop{
		timers: make(map[string]*timerEntry),
		wake:   make(chan struct{}, 1),
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post queues fn to run on the loop goroutine. It never blocks.
func (l *Loop) Post(fn func()) {
	l.qmu.Lock()
	l.queue = append(l.queue, fn)
	l.qmu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued callbacks until ctx is cancelled, then stops all timers.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Loop.Run: started")
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			slog.Info("Loop.Run: stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.qmu.Lock()
		batch := l.queue
		l.queue = nil
		l.qmu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// After schedules a function to run once after a delay.
func (l *Loop) After(delay time.Duration, fn func()) string {
	return l.schedule(delay, 0, fn)
}

// Every schedules a function to run repeatedly at the given interval.
func (l *Loop) Every(interval time.Duration, fn func()) string {
	if interval <= 0 {
		slog.Warn("Loop.Every: non-positive interval, using frame interval", "interval", interval)
		interval = DefaultFrameInterval
	}
	return l.schedule(interval, interval, fn)
}

func (l *Loop) schedule(delay, interval time.Duration, fn func()) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := fmt.Sprintf("timer_%d", l.nextID)
	now := time.Now()

	entry := &timerEntry{
		scheduledAt: now,
		expiresAt:   now.Add(delay),
		interval:    interval,
		description: fmt.Sprintf("Timer scheduled for %v", delay),
	}
	if interval > 0 {
		entry.description = fmt.Sprintf("Repeating every %v", interval)
	}

	entry.timer = time.AfterFunc(delay, func() {
		l.Post(func() { l.fire(id, fn) })
	})
	l.timers[id] = entry

	slog.Debug("Loop scheduled timer", "id", id, "delay", delay, "repeating", interval > 0)
	return id
}

// fire runs on the loop goroutine. A timer cancelled after its runtime timer
// expired but before its callback was drained is no longer registered and is skipped.
func (l *Loop) fire(id string, fn func()) {
	l.mu.Lock()
	entry, exists := l.timers[id]
	if !exists {
		l.mu.Unlock()
		return
	}
	if entry.interval == 0 {
		delete(l.timers, id)
	}
	l.mu.Unlock()

	fn()

	if entry.interval == 0 {
		return
	}
	l.mu.Lock()
	if _, still := l.timers[id]; still {
		entry.expiresAt = time.Now().Add(entry.interval)
		entry.timer.Reset(entry.interval)
	}
	l.mu.Unlock()
}

// Cancel cancels a scheduled function by ID.
func (l *Loop) Cancel(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, exists := l.timers[id]; exists {
		entry.timer.Stop()
		delete(l.timers, id)
		slog.Debug("Loop Cancel succeeded", "id", id)
		return true
	}
	return false
}

// Pending returns the number of registered timers.
func (l *Loop) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.timers)
}

// Stop cancels all scheduled timers.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.timers {
		entry.timer.Stop()
	}
	slog.Debug("Loop stopped all timers", "count", len(l.timers))
	l.timers = make(map[string]*timerEntry)
}

// ListActive returns information about all active timers.
func (l *Loop) ListActive() []TimerInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]TimerInfo, 0, len(l.timers))
	now := time.Now()
	for id, entry := range l.timers {
		remaining := entry.expiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		result = append(result, TimerInfo{
			ID:          id,
			ScheduledAt: entry.scheduledAt,
			ExpiresAt:   entry.expiresAt,
			Remaining:   remaining.String(),
			Description: entry.description,
			Repeating:   entry.interval > 0,
		})
	}
	return result
}
