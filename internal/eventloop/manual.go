package eventloop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by virtual time. The goroutine
// calling its methods acts as the loop: Do runs inline, and queued tasks and
// due timers run only inside Advance, RunPending and RunUntil. It is meant
// for tests.
type Manual struct {
	mu       sync.Mutex
	now      time.Duration
	seq      int
	queue    []func()
	timers   []*manualTimer
	inflight int
	wake     chan struct{}
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{wake: make(chan struct{}, 1)}
}

type manualTimer struct {
	at      time.Duration
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() { t.stopped = true }

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post enqueues fn. It may be called from any goroutine.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	m.signal()
}

// Do runs fn immediately on the calling goroutine.
func (m *Manual) Do(fn func()) {
	fn()
}

// AfterFunc schedules fn at now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

// Every schedules fn at each multiple of d from now.
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, every time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{at: m.now + d, every: every, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Go runs work in a goroutine; its continuation is queued and the work is
// counted as in flight until then.
func (m *Manual) Go(work func() func()) {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	go func() {
		next := work()
		m.mu.Lock()
		if next != nil {
			m.queue = append(m.queue, next)
		}
		m.inflight--
		m.mu.Unlock()
		m.signal()
	}()
}

func (m *Manual) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// RunPending runs queued tasks, including tasks they enqueue, until the
// queue is empty.
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order and running queued tasks after each one.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	m.mu.Lock()
	end := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(end)
		if t == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		m.now = t.at
		if t.every > 0 {
			t.at += t.every
		} else {
			m.remove(t)
		}
		m.mu.Unlock()

		t.fn()
		m.RunPending()
	}
}

// nextDue returns the earliest live timer due by end. Callers hold mu.
func (m *Manual) nextDue(end time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	if len(m.timers) == 0 || m.timers[0].at > end {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Idle reports whether no task is queued and no Go work is in flight.
func (m *Manual) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) == 0 && m.inflight == 0
}

// RunUntil runs queued tasks as they arrive until cond holds or the real
// timeout expires. It reports whether cond held.
func (m *Manual) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		m.RunPending()
		if cond() {
			return true
		}
		select {
		case <-m.wake:
		case <-deadline:
			m.RunPending()
			return cond()
		}
	}
}
