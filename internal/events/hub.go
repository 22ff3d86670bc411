package events

import (
	"slices"
	"sync"
)

// Publisher is the narrow interface the store listener and runner depend on.
type Publisher interface {
	Publish(Event)
}

// Hub fans events out to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber for the given types. No types means all.
// The caller must Close the subscription when done.
func (h *Hub) Subscribe(types ...Type) *Subscription {
	sub := newSubscription(h, types)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.shutdown()
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Publish delivers evt to every current subscriber that accepts its type.
// It never blocks on subscribers.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		if sub.accepts(evt.Type) {
			sub.enqueue(evt)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close shuts every subscription down. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*Subscription]struct{})
	h.closed = true
	h.mu.Unlock()
	for _, sub := range subs {
		sub.shutdown()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Subscription is one subscriber's ordered view of the hub.
type Subscription struct {
	hub   *Hub
	types []Type
	out   chan Event

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	done    bool
	once    sync.Once
}

func newSubscription(h *Hub, types []Type) *Subscription {
	sub := &Subscription{hub: h, types: slices.Clone(types), out: make(chan Event)}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.drain()
	return sub
}

// C returns the receive channel. It is closed after Close.
func (s *Subscription) C() <-chan Event {
	return s.out
}

// Close detaches the subscription from the hub and closes C once buffered
// events are abandoned.
func (s *Subscription) Close() {
	if s.hub != nil {
		s.hub.remove(s)
	}
	s.shutdown()
}

func (s *Subscription) accepts(t Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

func (s *Subscription) enqueue(evt Event) {
	s.mu.Lock()
	if !s.done {
		s.pending = append(s.pending, evt)
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Subscription) shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.done = true
		s.pending = nil
		s.cond.Broadcast()
		s.mu.Unlock()
	})
}

// drain moves buffered events to out, one at a time, until shutdown.
func (s *Subscription) drain() {
	defer close(s.out)
	stop := make(chan struct{})
	go func() {
		s.mu.Lock()
		for !s.done {
			s.cond.Wait()
		}
		s.mu.Unlock()
		close(stop)
	}()

	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.done {
			s.cond.Wait()
		}
		if s.done {
			s.mu.Unlock()
			return
		}
		evt := s.pending[0]
		s.pending[0] = Event{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-stop:
			return
		}
	}
}
