package clock

import (
	"container/heap"
	"fmt"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler whose time only moves when Advance is called.
// Timers due at the same instant fire in the order they were scheduled.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	nextID  int64
	queue   manualQueue
	entries map[string]*manualEntry
}

type manualEntry struct {
	id       string
	due      time.Time
	seq      uint64
	interval time.Duration
	fn       func()
	index    int
}

// NewManual creates a Manual scheduler starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		entries: make(map[string]*manualEntry),
	}
}

// Now returns the current simulated time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After schedules fn to run once delay after the current simulated time.
func (m *Manual) After(delay time.Duration, fn func()) string {
	if delay < 0 {
		delay = 0
	}
	return m.schedule(delay, 0, fn)
}

// Every schedules fn to run at each multiple of interval.
func (m *Manual) Every(interval time.Duration, fn func()) string {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return m.schedule(interval, interval, fn)
}

func (m *Manual) schedule(delay, interval time.Duration, fn func()) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.seq++
	e := &manualEntry{
		id:       fmt.Sprintf("timer_%d", m.nextID),
		due:      m.now.Add(delay),
		seq:      m.seq,
		interval: interval,
		fn:       fn,
	}
	heap.Push(&m.queue, e)
	m.entries[e.id] = e
	return e.id
}

// Cancel removes a pending timer.
func (m *Manual) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return false
	}
	heap.Remove(&m.queue, e.index)
	delete(m.entries, id)
	return true
}

// Pending returns the number of timers still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Advance moves simulated time forward by d, firing every timer that falls due.
// Timers scheduled by callbacks during the advance fire too if they fall inside it.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if m.queue.Len() == 0 || m.queue[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		e := m.queue[0]
		m.now = e.due
		if e.interval > 0 {
			m.seq++
			e.due = e.due.Add(e.interval)
			e.seq = m.seq
			heap.Fix(&m.queue, e.index)
		} else {
			heap.Pop(&m.queue)
			delete(m.entries, e.id)
		}
		fn := e.fn
		m.mu.Unlock()

		fn()
	}
}

// manualQueue orders entries by due time, then by scheduling sequence.
type manualQueue []*manualEntry

func (q manualQueue) Len() int { return len(q) }

func (q manualQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q manualQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *manualQueue) Push(x any) {
	e := x.(*manualEntry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *manualQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
