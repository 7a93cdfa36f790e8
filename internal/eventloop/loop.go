// Package eventloop provides a single logical thread of execution with
// cancelable delayed tasks.
//
// State owned by a Loop is only touched from tasks running on it, so it
// needs no mutexes. Blocking work (remote calls) runs off-loop through Go
// and posts its continuation back.
package eventloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer cancels a scheduled task. Stop is idempotent; once it returns on
// the loop, the task will not run even if its deadline already passed.
type Timer interface {
	Stop()
}

// Scheduler is the task abstraction components are written against.
type Scheduler interface {
	// Post enqueues fn to run on the loop.
	Post(fn func())
	// Do runs fn on the loop and waits for it to finish. It must not be
	// called from a task already running on the loop.
	Do(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Every runs fn on the loop each time d elapses.
	Every(d time.Duration, fn func()) Timer
	// Go runs work off-loop and then runs the function it returns on the
	// loop. A nil continuation is skipped.
	Go(work func() func())
}

// Loop is the production Scheduler: one goroutine draining a task queue.
type Loop struct {
	tasks   chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	work    sync.WaitGroup
}

var _ Scheduler = (*Loop)(nil)

// New starts a loop.
func New() *Loop {
	l := &Loop{
		tasks:   make(chan func(), 256),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn. Tasks posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.tasks <- fn:
	case <-l.stopped:
	}
}

// Do runs fn on the loop and waits. After Close it returns without running fn.
func (l *Loop) Do(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-l.stopped:
	}
}

// AfterFunc schedules fn once.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !t.stopped {
				fn()
			}
		})
	})
	return t
}

// Every schedules fn repeatedly.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &tickTimer{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				l.Post(func() {
					if !t.stopped {
						fn()
					}
				})
			}
		}
	}()
	return t
}

// Go runs work in a goroutine and posts its continuation.
func (l *Loop) Go(work func() func()) {
	l.work.Add(1)
	go func() {
		defer l.work.Done()
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
}

// Close stops the loop. Pending tasks are discarded and in-flight Go work
// is waited for; its continuations are dropped.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
	l.work.Wait()
}

// loopTimer's stopped flag is only read and written on the loop.
type loopTimer struct {
	t       *time.Timer
	stopped bool
}

func (t *loopTimer) Stop() {
	t.stopped = true
	t.t.Stop()
}

type tickTimer struct {
	ticker  *time.Ticker
	done    chan struct{}
	stopped bool
	once    sync.Once
}

func (t *tickTimer) Stop() {
	t.stopped = true
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
