package events

import (
	"context"
	"errors"
	"sync"
)

// ErrBusClosed is returned by Subscribe after Shutdown.
var ErrBusClosed = errors.New("event bus is shut down")

// Bus is an in-process publish/subscribe hub keyed by topic. An empty
// topic subscribes to everything.
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription delivers events for one topic
type Subscription struct {
	topic     string
	channel   chan Event
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBus creates a new Bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a subscription with a buffer of size events. The
// subscription ends when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, topic string, size int) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrBusClosed
	}
	b.shutdownMu.Unlock()

	if size <= 0 {
		size = 100
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, size),
		bus:     b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers ev to subscribers of ev.Topic and to wildcard
// subscribers. A full subscriber buffer drops the event for that
// subscriber.
func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.shutdownMu.Unlock()

	// Snapshot so Unsubscribe can run while we send
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscribers[ev.Topic])+len(b.subscribers[""]))
	for sub := range b.subscribers[ev.Topic] {
		subs = append(subs, sub)
	}
	if ev.Topic != "" {
		for sub := range b.subscribers[""] {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.channel <- ev:
		default:
		}
	}
	return nil
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's event channel. It is closed when the
// subscription ends.
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
