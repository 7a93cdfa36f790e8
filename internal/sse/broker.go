// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	// Scope limits delivery to clients subscribed with the same scope (a
	// session or slideshow id). Clients without a scope receive everything.
	Scope string      `json:"-"`
	Data  interface{} `json:"data"`
}

type latestReq struct {
	key   string
	event Event
}

type subscription struct {
	ch    chan []byte
	scope string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, coalescing timestamps and held events). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	minInterval time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	latestCh      chan latestReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. Events published with PublishLatest
// under the same key are sent at most once per interval.
func NewBroker(interval time.Duration) *Broker {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	b := &Broker{
		minInterval:   interval,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		latestCh:      make(chan latestReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastSent := make(map[string]time.Time)
	held := make(map[string]Event)

	var (
		flushTimer *time.Timer
		flushC     <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, scope := range clients {
			if event.Scope != "" && scope != "" && scope != event.Scope {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	// armFlush schedules a wake-up for the earliest held event.
	armFlush := func() {
		if flushTimer != nil || len(held) == 0 {
			return
		}
		var next time.Duration = -1
		now := time.Now()
		for key := range held {
			wait := b.minInterval - now.Sub(lastSent[key])
			if next < 0 || wait < next {
				next = wait
			}
		}
		flushTimer = time.NewTimer(max(next, 0))
		flushC = flushTimer.C
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.scope

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.latestCh:
			now := time.Now()
			if now.Sub(lastSent[req.key]) >= b.minInterval {
				delete(held, req.key)
				lastSent[req.key] = now
				broadcast(req.event)
			} else {
				held[req.key] = req.event
				armFlush()
			}

		case <-flushC:
			flushTimer, flushC = nil, nil
			now := time.Now()
			for key, event := range held {
				if now.Sub(lastSent[key]) >= b.minInterval {
					delete(held, key)
					lastSent[key] = now
					broadcast(event)
				}
			}
			for key, t := range lastSent {
				if _, pending := held[key]; !pending && now.Sub(t) > b.minInterval {
					delete(lastSent, key)
				}
			}
			armFlush()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client receiving every event and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeScope("")
}

// SubscribeScope adds a client that receives unscoped events plus those
// scoped to scope.
func (b *Broker) SubscribeScope(scope string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, scope: scope}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishLatest sends event now if nothing was sent under key within the
// broker interval; otherwise it is held, replacing any earlier held event
// for key, and sent when the interval elapses. Bursts of state snapshots
// collapse to the newest one.
func (b *Broker) PublishLatest(key string, event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.latestCh <- latestReq{key: key, event: event}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// scope query parameter narrows scoped events to one session or slideshow.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeScope(r.URL.Query().Get("scope"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
