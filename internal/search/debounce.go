package search

import (
	"time"

	"github.com/starford/albumen/internal/eventloop"
)

// DefaultDebounce is the quiet period after the last keystroke.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays a query handler until input has been quiet for the
// configured period. It is owned by one event loop and must only be used
// from it.
type Debouncer struct {
	sched   eventloop.Scheduler
	delay   time.Duration
	fire    func(query string)
	pending eventloop.Timer
}

// NewDebouncer returns a debouncer calling fire on sched.
func NewDebouncer(sched eventloop.Scheduler, delay time.Duration, fire func(query string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{sched: sched, delay: delay, fire: fire}
}

// Input records a new query value, canceling any pending one.
func (d *Debouncer) Input(query string) {
	d.Cancel()
	d.pending = d.sched.AfterFunc(d.delay, func() {
		d.pending = nil
		d.fire(query)
	})
}

// Clear cancels any pending query and fires the empty query immediately.
func (d *Debouncer) Clear() {
	d.Cancel()
	d.fire("")
}

// Pending reports whether a query is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	return d.pending != nil
}

// Cancel drops the pending query, if any.
func (d *Debouncer) Cancel() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
