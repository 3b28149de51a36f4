// Package clock provides the cooperative scheduling primitives the reveal flow runs on.
//
// Every callback scheduled through a Scheduler runs on a single logical thread:
// the Loop goroutine in production, or the goroutine calling Manual.Advance in tests.
// Flow components therefore never lock their own state.
package clock

import "time"

// DefaultFrameInterval approximates one animation frame at 60 FPS.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler defines the timer facilities available to flow components.
type Scheduler interface {
	// Now returns the scheduler's notion of the current time
	Now() time.Time

	// After schedules fn to run once after delay and returns its timer ID
	After(delay time.Duration, fn func()) string

	// Every schedules fn to run repeatedly at interval until cancelled
	Every(interval time.Duration, fn func()) string

	// Cancel stops a pending timer; it reports whether the timer was still pending
	Cancel(id string) bool

	// Pending returns the number of timers that have not yet fired or been cancelled
	Pending() int
}

// TimerInfo describes a pending timer.
type TimerInfo struct {
	ID          string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Remaining   string    `json:"remaining"`
	Description string    `json:"description"`
	Repeating   bool      `json:"repeating"`
}
