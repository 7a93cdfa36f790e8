package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks live objects by generated id and evicts the ones left
// idle. It is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.Mutex
	items   map[string]*slot[T]
	idle    time.Duration
	release func(T)
	onSize  func(n int)
	now     func() time.Time
}

type slot[T any] struct {
	value    T
	lastSeen time.Time
}

// NewRegistry returns a registry evicting entries unused for idle.
// release is called for every removed entry; onSize, if non-nil, receives
// the size after each change.
func NewRegistry[T any](idle time.Duration, release func(T), onSize func(int)) *Registry[T] {
	return &Registry[T]{
		items:   make(map[string]*slot[T]),
		idle:    idle,
		release: release,
		onSize:  onSize,
		now:     time.Now,
	}
}

// Add stores the value built by create under a new id.
func (r *Registry[T]) Add(create func(id string) T) (string, T) {
	id := uuid.NewString()
	v := create(id)

	r.mu.Lock()
	r.items[id] = &slot[T]{value: v, lastSeen: r.now()}
	n := len(r.items)
	r.mu.Unlock()

	r.sized(n)
	return id, v
}

// Get returns the value for id and marks it as used.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	s.lastSeen = r.now()
	return s.value, true
}

// Remove deletes and releases id. It reports whether id existed.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.items[id]
	delete(r.items, id)
	n := len(r.items)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.release(s.value)
	r.sized(n)
	return true
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Each calls fn for every live entry without marking it as used. fn runs
// outside the registry lock.
func (r *Registry[T]) Each(fn func(T)) {
	r.mu.Lock()
	values := make([]T, 0, len(r.items))
	for _, s := range r.items {
		values = append(values, s.value)
	}
	r.mu.Unlock()

	for _, v := range values {
		fn(v)
	}
}

// Sweep evicts entries idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry[T]) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []T
	for id, s := range r.items {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.value)
			delete(r.items, id)
		}
	}
	n := len(r.items)
	r.mu.Unlock()

	for _, v := range expired {
		r.release(v)
	}
	if len(expired) > 0 {
		r.sized(n)
	}
	return len(expired)
}

// Run sweeps every interval until ctx ends, then releases everything left.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return nil
		case <-t.C:
			r.Sweep()
		}
	}
}

// CloseAll releases and removes every entry.
func (r *Registry[T]) CloseAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*slot[T])
	r.mu.Unlock()

	for _, s := range items {
		r.release(s.value)
	}
	r.sized(0)
}

func (r *Registry[T]) sized(n int) {
	if r.onSize != nil {
		r.onSize(n)
	}
}
